package diagfmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"winter/internal/diag"
)

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func annotationCommand(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	}
	return "notice"
}

// GitHub writes workflow commands of the form
//
//	::error file=F,line=L,col=C,title=RULE::MESSAGE
//
// and, with opts.Group, a collapsible summary block.
func GitHub(w io.Writer, ds []diag.Diagnostic, files int, opts GitHubOpts) error {
	bw := bufio.NewWriter(w)
	for _, d := range ds {
		loc := d.Location
		path := formatPath(loc.File, opts.PathMode, opts.BaseDir)
		fmt.Fprintf(bw, "::%s file=%s,line=%d,col=%d,title=%s::%s\n",
			annotationCommand(d.Severity),
			propertyEscaper.Replace(path), loc.Line, loc.Column,
			propertyEscaper.Replace(d.RuleID),
			dataEscaper.Replace(d.Message))
	}
	if opts.Group {
		c := diag.Count(ds)
		bw.WriteString("::group::winter summary\n")
		fmt.Fprintf(bw, "files: %d\n", files)
		fmt.Fprintf(bw, "errors: %d\n", c.Errors)
		fmt.Fprintf(bw, "warnings: %d\n", c.Warnings)
		fmt.Fprintf(bw, "infos: %d\n", c.Infos)
		bw.WriteString("::endgroup::\n")
	}
	return bw.Flush()
}
