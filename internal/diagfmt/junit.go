package diagfmt

import (
	"encoding/xml"
	"fmt"
	"io"

	"winter/internal/diag"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string       `xml:"name,attr"`
	Classname string       `xml:"classname,attr"`
	Failure   junitFailure `xml:"failure"`
}

type junitFailure struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

// JUnit writes one test suite per file and one failed test case per
// diagnostic, for CI systems that only understand test reports.
func JUnit(w io.Writer, ds []diag.Diagnostic, opts JUnitOpts) error {
	name := opts.SuiteName
	if name == "" {
		name = "winter"
	}
	root := junitSuites{Name: name, Tests: len(ds), Failures: len(ds)}
	byFile := make(map[string]int)
	for _, d := range ds {
		path := formatPath(d.Location.File, opts.PathMode, opts.BaseDir)
		i, ok := byFile[path]
		if !ok {
			i = len(root.Suites)
			byFile[path] = i
			root.Suites = append(root.Suites, junitSuite{Name: path})
		}
		s := &root.Suites[i]
		s.Tests++
		s.Failures++
		s.Cases = append(s.Cases, junitCase{
			Name:      fmt.Sprintf("%s:%d:%d %s", path, d.Location.Line, d.Location.Column, d.RuleID),
			Classname: path,
			Failure: junitFailure{
				Type:    d.Severity.String(),
				Message: d.Message,
				Text:    fmt.Sprintf("%s:%d:%d: %s: %s: %s", path, d.Location.Line, d.Location.Column, d.Severity, d.RuleID, d.Message),
			},
		})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
