package project

import "fmt"

// AddUsage declares a dependency on resource in the project at dir.
// When the resource is already declared, AddUsage fails with
// ErrDuplicateUsage unless replace is set, in which case the existing
// entry's version constraint is replaced in place rather than a second
// entry being appended.
func AddUsage(dir, resource, constraint string, replace bool) error {
	m, meta, err := Load(dir)
	if err != nil {
		return err
	}
	for i, u := range m.Usage {
		if u.Resource == resource {
			if !replace {
				return fmt.Errorf("usage %q: %w", resource, ErrDuplicateUsage)
			}
			m.Usage[i].VersionConstraint = constraint
			return Save(dir, m, meta)
		}
	}
	m.Usage = append(m.Usage, Usage{Resource: resource, VersionConstraint: constraint})
	if err := m.Validate(); err != nil {
		return err
	}
	return Save(dir, m, meta)
}

// RemoveUsage removes the usage entry for resource. It fails with
// ErrNotFound when the resource is not declared.
func RemoveUsage(dir, resource string) error {
	m, meta, err := Load(dir)
	if err != nil {
		return err
	}
	kept := m.Usage[:0]
	found := false
	for _, u := range m.Usage {
		if u.Resource == resource {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return fmt.Errorf("usage %q: %w", resource, ErrNotFound)
	}
	m.Usage = kept
	return Save(dir, m, meta)
}
