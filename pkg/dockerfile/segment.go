// Package dockerfile splits a Dockerfile into cacheable build segments.
//
// A segment is a contiguous run of instructions built as one unit. Every
// ADD/COPY instruction gets a segment of its own so its result can be cached
// by content hash; everything between copies accumulates into plain segments.
package dockerfile

import "strings"

const commentMarker = "#"

// CopyInstruction is a parsed ADD or COPY line.
type CopyInstruction struct {
	Source string
	Dest   string
}

// Segment is one build step. Copy is non-nil when the segment wraps exactly
// one ADD/COPY instruction; otherwise Instructions holds one or more other
// instruction lines.
type Segment struct {
	Instructions []string
	Copy         *CopyInstruction
}

// IsCopy reports whether the segment is a single content-copy instruction.
func (s Segment) IsCopy() bool { return s.Copy != nil }

// Render materializes the segment as a standalone Dockerfile, prepending a
// FROM line when a base image is given.
func (s Segment) Render(baseImage string) string {
	var b strings.Builder
	if baseImage != "" {
		b.WriteString("FROM ")
		b.WriteString(baseImage)
		b.WriteString("\n")
	}
	for _, in := range s.Instructions {
		b.WriteString(in)
		b.WriteString("\n")
	}
	return b.String()
}

// Split partitions a Dockerfile into segments in source order, cutting
// immediately before every ADD/COPY instruction. Blank lines and comments
// are dropped. A file without copy instructions yields at most one segment.
func Split(text string) []Segment {
	var segments []Segment
	var plain []string

	flush := func() {
		if len(plain) > 0 {
			segments = append(segments, Segment{Instructions: plain})
			plain = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		if ci := parseCopy(line); ci != nil {
			flush()
			segments = append(segments, Segment{
				Instructions: []string{line},
				Copy:         ci,
			})
			continue
		}
		plain = append(plain, line)
	}
	flush()

	return segments
}

// parseCopy returns the parsed instruction when line is an ADD or COPY whose
// source lives in the build context, nil otherwise. Flags such as --chown are
// skipped; a --from copy reads from another image, not the context, so it is
// treated as a plain instruction.
func parseCopy(line string) *CopyInstruction {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil
	}
	switch strings.ToUpper(fields[0]) {
	case "ADD", "COPY":
	default:
		return nil
	}

	args := fields[1:]
	for len(args) > 0 && strings.HasPrefix(args[0], "--") {
		if strings.HasPrefix(args[0], "--from=") {
			return nil
		}
		args = args[1:]
	}
	if len(args) < 2 {
		return nil
	}

	return &CopyInstruction{
		Source: args[0],
		Dest:   args[len(args)-1],
	}
}
