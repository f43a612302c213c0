package manifest

// AddDependencyIfAbsent appends dep unless a dependency with the same
// LocalPath is already declared. It reports whether dep was added.
// Existing entries keep their order and are never modified.
func (m *Manifest) AddDependencyIfAbsent(dep Dependency) bool {
	if _, ok := m.Find(dep.LocalPath); ok {
		return false
	}
	m.Dependencies = append(m.Dependencies, dep)
	return true
}

// Find returns the dependency declared at localPath.
func (m *Manifest) Find(localPath string) (Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.LocalPath == localPath {
			return d, true
		}
	}
	return Dependency{}, false
}
