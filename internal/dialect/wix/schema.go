package wix

import (
	"sort"

	"winter/internal/symbols"
)

var packageIDs = []string{"Name", "Id"}

// Schema returns the WiX symbol schema. Singular and group forms share a
// canonical bucket so that either satisfies a reference.
func Schema() *symbols.Schema {
	dirs := make([]string, 0, len(StandardDirectories))
	for name := range StandardDirectories {
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)

	return &symbols.Schema{
		Definitions: map[string]symbols.DefKind{
			"Component":         {Canonical: "Component", DetailAttr: "Directory"},
			"ComponentGroup":    {Canonical: "Component", DetailAttr: "Directory"},
			"Directory":         {Canonical: "Directory", DetailAttr: "Name"},
			"StandardDirectory": {Canonical: "Directory"},
			"Feature":           {Canonical: "Feature", DetailAttr: "Title"},
			"FeatureGroup":      {Canonical: "Feature"},
			"Property":          {Canonical: "Property", DetailAttr: "Value"},
			"CustomAction":      {Canonical: "CustomAction", DetailAttr: "DllEntry"},
			"Binary":            {Canonical: "Binary", DetailAttr: "SourceFile"},
			"Fragment":          {Canonical: "Fragment"},
			"UI":                {Canonical: "UI"},
			"Dialog":            {Canonical: "Dialog", DetailAttr: "Title"},
			"PayloadGroup":      {Canonical: "PayloadGroup"},
			"PackageGroup":      {Canonical: "PackageGroup"},
			"Package":           {Canonical: "Package", IDAttrs: packageIDs, DetailAttr: "Version"},
			"Module":            {Canonical: "Package", IDAttrs: packageIDs, DetailAttr: "Version"},
			"Bundle":            {Canonical: "Package", IDAttrs: packageIDs, DetailAttr: "Version"},
		},
		References: map[string]string{
			"ComponentRef":      "Component",
			"ComponentGroupRef": "Component",
			"DirectoryRef":      "Directory",
			"FeatureRef":        "Feature",
			"FeatureGroupRef":   "Feature",
			"PropertyRef":       "Property",
			"CustomActionRef":   "CustomAction",
			"BinaryRef":         "Binary",
			"UIRef":             "UI",
			"DialogRef":         "Dialog",
			"PayloadGroupRef":   "PayloadGroup",
			"PackageGroupRef":   "PackageGroup",
		},
		Builtins: map[string][]string{
			"Directory": dirs,
			"UI":        append([]string(nil), UISets...),
		},
	}
}
