package core

import "github.com/JonMunkholm/datacleaner/internal/dataset"

// SampleSize is the number of distinct values kept per column in a profile.
const SampleSize = 10

// ColumnProfile summarizes one column.
type ColumnProfile struct {
	Name    string          `json:"name" yaml:"name"`
	Type    string          `json:"dtype" yaml:"dtype"`
	Nulls   int             `json:"nulls" yaml:"nulls"`
	Samples []dataset.Value `json:"samples" yaml:"samples"`
}

// Profile is a read-only summary of a dataset.
type Profile struct {
	Shape      dataset.Shape   `json:"shape" yaml:"shape"`
	Columns    []ColumnProfile `json:"columns" yaml:"columns"`
	Duplicates int             `json:"duplicates" yaml:"duplicates"`
	Nulls      int             `json:"nulls" yaml:"nulls"`
}

// Column returns the profile of the named column.
func (p Profile) Column(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// ProfileDataset summarizes ds without modifying it.
func ProfileDataset(ds *dataset.Dataset) Profile {
	if ds == nil {
		return Profile{}
	}
	p := Profile{
		Shape:      ds.Shape(),
		Columns:    make([]ColumnProfile, 0, ds.NumColumns()),
		Duplicates: ds.DuplicateCount(),
	}
	for _, c := range ds.Columns() {
		cp := ColumnProfile{Name: c.Name, Type: c.Type.String(), Samples: []dataset.Value{}}
		seen := make(map[string]bool)
		for _, v := range c.Values {
			if v.IsNull() {
				cp.Nulls++
				continue
			}
			if len(cp.Samples) < SampleSize && !seen[v.Key()] {
				seen[v.Key()] = true
				cp.Samples = append(cp.Samples, v)
			}
		}
		p.Nulls += cp.Nulls
		p.Columns = append(p.Columns, cp)
	}
	return p
}
