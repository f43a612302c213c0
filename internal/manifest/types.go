package manifest

// FileName is the canonical manifest filename at a project root.
const FileName = "blend.yml"

// Manifest represents a blend.yml file.
// Absent fields are omitted on write so hand-edited files stay minimal.
type Manifest struct {
	Name         string       `yaml:"name,omitempty"`
	Description  string       `yaml:"description,omitempty"`
	Hooks        *Hooks       `yaml:"hooks,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

// Hooks holds optional lifecycle commands. They are stored, never run.
type Hooks struct {
	PreInstall    string `yaml:"preinstall,omitempty"`
	PostInstall   string `yaml:"postinstall,omitempty"`
	PreUninstall  string `yaml:"preuninstall,omitempty"`
	PostUninstall string `yaml:"postuninstall,omitempty"`
}

// Dependency records one vendored inclusion and its pin.
// LocalPath is the natural key within a manifest.
type Dependency struct {
	Repo       string `yaml:"repo"`
	Hash       string `yaml:"hash"`
	RemotePath string `yaml:"remote_path"`
	LocalPath  string `yaml:"local_path"`
}
