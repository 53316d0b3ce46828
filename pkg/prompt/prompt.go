// Package prompt builds the rewrite instruction sent to the model.
package prompt

import (
	"fmt"
	"strings"
)

// 📄 Document is one side of a transformation
type Document struct {
	// Name is the file's base name
	Name string
	// Content is the full text
	Content string
}

// HasContent reports whether the document text is non-blank.
func (d Document) HasContent() bool {
	return strings.TrimSpace(d.Content) != ""
}

// 📝 Build returns the instruction to rewrite source so it fits target.
func Build(source, target Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You keep two files in sync. The file %q changed and %q must be updated to match it.\n\n", source.Name, target.Name)

	fmt.Fprintf(&b, "Content of %s:\n<source>\n%s\n</source>\n\n", source.Name, source.Content)

	if target.HasContent() {
		fmt.Fprintf(&b, "Current content of %s:\n<target>\n%s\n</target>\n\n", target.Name, target.Content)
		fmt.Fprintf(&b, "Convert the content of %s so it matches the existing style, language and format of %s. ", source.Name, target.Name)
		b.WriteString("Keep everything in the current target that still corresponds to the source and make only the minimal changes needed.\n\n")
	} else {
		fmt.Fprintf(&b, "%s is currently empty. ", target.Name)
		fmt.Fprintf(&b, "Infer the appropriate language, style and format from the file name %q alone and convert the content of %s accordingly.\n\n", target.Name, source.Name)
	}

	fmt.Fprintf(&b, "Reply with the complete new content of %s and nothing else. Do not wrap it in code fences and do not add explanations.", target.Name)

	return b.String()
}
