package orm

import (
	"context"
	"fmt"
	"strings"
)

// loadRelations eager loads names onto coll. Each relation costs one query
// regardless of the collection size. Unknown names are skipped.
func loadRelations(ctx context.Context, m *Meta, coll Collection, names []string) error {
	if len(coll) == 0 {
		return nil
	}

	var order []string
	nested := make(map[string][]string)
	for _, name := range names {
		first, rest, _ := strings.Cut(name, ".")
		if first == "" {
			continue
		}
		if _, seen := nested[first]; !seen {
			order = append(order, first)
			nested[first] = nil
		}
		if rest != "" {
			nested[first] = append(nested[first], rest)
		}
	}

	for _, name := range order {
		other, rel, ok := m.related(name)
		if !ok {
			continue
		}
		var err error
		switch rel.Kind {
		case BelongsTo:
			err = loadBelongsTo(ctx, other, rel, name, coll, nested[name])
		case HasMany, HasOne:
			err = loadHasMany(ctx, m, other, rel, name, coll, nested[name])
		}
		if err != nil {
			return fmt.Errorf("orm: load %s.%s: %w", m.Name, name, err)
		}
	}
	return nil
}

func loadBelongsTo(ctx context.Context, owner *Meta, rel Relation, name string, coll Collection, nested []string) error {
	ownerKey := rel.OwnerKey
	if ownerKey == "" {
		ownerKey = owner.PrimaryKey
	}

	keys := distinctValues(coll, rel.ForeignKey)
	parents := make(map[string]*Model)
	if len(keys) > 0 {
		found, err := owner.Query().WhereIn(ownerKey, keys).With(nested...).Get(ctx)
		if err != nil {
			return err
		}
		for _, p := range found {
			parents[fmt.Sprint(p.Get(ownerKey))] = p
		}
	}

	for _, rec := range coll {
		fk := rec.Get(rel.ForeignKey)
		if fk == nil {
			rec.SetRelation(name, nil)
			continue
		}
		if p, ok := parents[fmt.Sprint(fk)]; ok {
			rec.SetRelation(name, p)
		} else {
			rec.SetRelation(name, nil)
		}
	}
	return nil
}

func loadHasMany(ctx context.Context, m, child *Meta, rel Relation, name string, coll Collection, nested []string) error {
	localKey := rel.OwnerKey
	if localKey == "" {
		localKey = m.PrimaryKey
	}

	keys := distinctValues(coll, localKey)
	children := make(map[string]Collection)
	if len(keys) > 0 {
		found, err := child.Query().WhereIn(rel.ForeignKey, keys).With(nested...).Get(ctx)
		if err != nil {
			return err
		}
		for _, c := range found {
			k := fmt.Sprint(c.Get(rel.ForeignKey))
			children[k] = append(children[k], c)
		}
	}

	for _, rec := range coll {
		matched := children[fmt.Sprint(rec.Get(localKey))]
		if rel.Kind == HasOne {
			if len(matched) == 0 {
				rec.SetRelation(name, nil)
			} else {
				rec.SetRelation(name, matched[0])
			}
			continue
		}
		if matched == nil {
			matched = Collection{}
		}
		rec.SetRelation(name, matched)
	}
	return nil
}

func distinctValues(coll Collection, column string) []any {
	seen := make(map[string]bool)
	var out []any
	for _, rec := range coll {
		v := rec.Get(column)
		if v == nil {
			continue
		}
		k := fmt.Sprint(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
