package resolve

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Option is one entry of a selector list.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Programs lists the catalog's programs as "Name (CODE)", optionally only
// those of one college, sorted by label.
func (c *Catalog) Programs(collegeCode string) []Option {
	opts := make([]Option, 0, len(c.programs))
	for id, p := range c.programs {
		if collegeCode != "" && p.CollegeCode != collegeCode {
			continue
		}
		opts = append(opts, Option{Value: id, Label: p.Name + " (" + p.Code + ")"})
	}
	sortOptions(opts)
	return opts
}

// Colleges lists the distinct colleges keyed by college code, sorted by
// name. When programs disagree on a college's name, the program with the
// greatest id wins.
func (c *Catalog) Colleges() []Option {
	ids := make([]string, 0, len(c.programs))
	for id := range c.programs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make(map[string]string)
	for _, id := range ids {
		p := c.programs[id]
		if p.CollegeCode != "" {
			names[p.CollegeCode] = p.College
		}
	}

	opts := make([]Option, 0, len(names))
	for code, name := range names {
		opts = append(opts, Option{Value: code, Label: name})
	}
	sortOptions(opts)
	return opts
}

// sortOptions orders by label using English collation, ignoring case, then
// by value so equal labels sort deterministically.
func sortOptions(opts []Option) {
	// Collators keep per-call buffers; one per sort.
	col := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(opts, func(i, j int) bool {
		if cmp := col.CompareString(opts[i].Label, opts[j].Label); cmp != 0 {
			return cmp < 0
		}
		return opts[i].Value < opts[j].Value
	})
}
