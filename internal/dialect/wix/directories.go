package wix

// StandardDirectories are the Windows Installer folder properties every
// package may reference without defining them.
var StandardDirectories = map[string]string{
	"TARGETDIR":              "Root installation directory",
	"ProgramFilesFolder":     "Program Files folder (32-bit)",
	"ProgramFiles64Folder":   "Program Files folder (64-bit)",
	"ProgramFiles6432Folder": "Program Files folder (32-bit or 64-bit depending on package)",
	"CommonFilesFolder":      "Common Files folder",
	"CommonFiles64Folder":    "Common Files folder (64-bit)",
	"CommonFiles6432Folder":  "Common Files folder (32-bit or 64-bit depending on package)",
	"ProgramMenuFolder":      "Start Menu Programs folder",
	"StartMenuFolder":        "Start Menu folder",
	"StartupFolder":          "Startup folder",
	"DesktopFolder":          "Desktop folder",
	"AppDataFolder":          "Application Data folder (roaming)",
	"LocalAppDataFolder":     "Local Application Data folder",
	"TempFolder":             "Temporary folder",
	"WindowsFolder":          "Windows folder",
	"SystemFolder":           "System32 folder (32-bit)",
	"System64Folder":         "System32 folder (64-bit)",
	"System16Folder":         "16-bit system folder",
	"FontsFolder":            "Fonts folder",
	"FavoritesFolder":        "Favorites folder",
	"SendToFolder":           "SendTo folder",
	"NetHoodFolder":          "Network Shortcuts folder",
	"PrintHoodFolder":        "Printer Shortcuts folder",
	"TemplateFolder":         "Templates folder",
	"AdminToolsFolder":       "Administrative Tools folder",
	"PersonalFolder":         "Personal (My Documents) folder",
	"MyPicturesFolder":       "My Pictures folder",
	"CommonAppDataFolder":    "Common Application Data folder",
	"WindowsVolume":          "Volume of the Windows folder",
}

// UISets are the dialog sets shipped with the WixUI extension.
var UISets = []string{
	"WixUI_Advanced",
	"WixUI_Common",
	"WixUI_ErrorProgressText",
	"WixUI_FeatureTree",
	"WixUI_InstallDir",
	"WixUI_Minimal",
	"WixUI_Mondo",
}

// BuiltinProperties documents the installer properties shown on hover.
var BuiltinProperties = map[string]string{
	"ProductCode":    "GUID uniquely identifying this product",
	"ProductName":    "Human-readable product name",
	"ProductVersion": "Product version string (major.minor.build)",
	"Manufacturer":   "Company or individual publishing the product",
	"UpgradeCode":    "GUID shared by all versions for upgrade detection",
	"INSTALLFOLDER":  "Primary installation folder",
	"INSTALLDIR":     "Main installation directory (common convention)",
	"REINSTALL":      "Features to reinstall",
	"REINSTALLMODE":  "Reinstallation mode flags",
	"REBOOT":         "Reboot behavior control",
	"ADDLOCAL":       "Features to install locally",
	"REMOVE":         "Features to remove",
	"ALLUSERS":       "Per-machine (1) or per-user (empty) installation",
	"ARPPRODUCTICON": "Product icon for Add/Remove Programs",
	"ARPHELPLINK":    "Support URL for Add/Remove Programs",
}

// elementDocs is the offline fallback used when no knowledge base is open.
var elementDocs = map[string]string{
	"Wix":                    "Root element of every WiX source file.",
	"Package":                "Describes an installable Windows Installer package.",
	"Bundle":                 "Describes a bootstrapper bundle chaining several packages.",
	"Module":                 "Describes a merge module.",
	"Fragment":               "A unit of linking; everything inside is pulled in when something in it is referenced.",
	"Directory":              "A directory in the installation layout.",
	"StandardDirectory":      "References a predefined Windows Installer directory.",
	"DirectoryRef":           "References a Directory defined elsewhere.",
	"Component":              "The atomic unit of installation; owns files, registry values and shortcuts.",
	"ComponentGroup":         "A named group of components.",
	"ComponentRef":           "References a Component defined elsewhere.",
	"ComponentGroupRef":      "References a ComponentGroup defined elsewhere.",
	"Feature":                "A user-selectable piece of functionality made of components.",
	"FeatureGroup":           "A named group of features.",
	"FeatureRef":             "References a Feature defined elsewhere.",
	"FeatureGroupRef":        "References a FeatureGroup defined elsewhere.",
	"File":                   "A file installed by the parent component.",
	"RegistryKey":            "A registry key created by the parent component.",
	"RegistryValue":          "A registry value written by the parent component.",
	"Shortcut":               "A shortcut created by the parent component.",
	"Property":               "Declares a Windows Installer property.",
	"PropertyRef":            "References a Property defined elsewhere.",
	"CustomAction":           "Declares a custom action.",
	"CustomActionRef":        "References a CustomAction defined elsewhere.",
	"Custom":                 "Schedules a custom action in a sequence table.",
	"Binary":                 "Embeds a binary stream, usually a custom action DLL.",
	"MajorUpgrade":           "Configures major upgrade behavior.",
	"MediaTemplate":          "Generates Media rows and cabinets automatically.",
	"Media":                  "Describes one installation medium.",
	"UI":                     "Groups user interface elements.",
	"UIRef":                  "References a UI set such as WixUI_Minimal.",
	"ServiceInstall":         "Installs a Windows service.",
	"ServiceControl":         "Starts, stops or removes a Windows service.",
	"Environment":            "Sets an environment variable.",
	"CreateFolder":           "Creates an empty folder.",
	"RemoveFolder":           "Removes a folder during install or uninstall.",
	"RemoveFile":             "Removes a file during install or uninstall.",
	"Launch":                 "A launch condition that blocks installation when false.",
	"Icon":                   "An icon used by shortcuts and Add/Remove Programs.",
	"WixVariable":            "Sets a WiX variable.",
	"SetProperty":            "Sets a property at a point in a sequence.",
	"InstallExecuteSequence": "The execute sequence table.",
	"InstallUISequence":      "The UI sequence table.",
}
