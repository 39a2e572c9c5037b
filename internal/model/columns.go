package model

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Counters maps stat column names to summed values. The hand count of a
// bucket is stored under HandsKey.
type Counters map[string]int64

// HandsKey is the counter holding the number of hands in an aggregate.
const HandsKey = "HDs"

// Add sums other into c.
func (c Counters) Add(other Counters) {
	for k, v := range other {
		c[k] += v
	}
}

func (c Counters) Clone() Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Sum adds the named counters.
func (c Counters) Sum(names ...string) int64 {
	var total int64
	for _, n := range names {
		total += c[n]
	}
	return total
}

type statColumn struct {
	name  string
	index []int
	elem  int // -1 for scalar fields
}

var (
	columnsOnce sync.Once
	columns     []statColumn
	columnIndex map[string]int
)

func loadColumns() {
	columnsOnce.Do(func() {
		t := reflect.TypeOf(PlayerHandStat{})
		columnIndex = map[string]int{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag, ok := f.Tag.Lookup("stat")
			if !ok {
				continue
			}
			if f.Type.Kind() != reflect.Array {
				columns = append(columns, statColumn{name: tag, index: f.Index, elem: -1})
				continue
			}
			first := 0
			if v, ok := f.Tag.Lookup("first"); ok {
				first, _ = strconv.Atoi(v)
			}
			for j := 0; j < f.Type.Len(); j++ {
				columns = append(columns, statColumn{name: fmt.Sprintf(tag, first+j), index: f.Index, elem: j})
			}
		}
		for i, c := range columns {
			columnIndex[c.name] = i
		}
	})
}

// StatColumns lists the PlayerHandStat counter columns in declaration order.
func StatColumns() []string {
	loadColumns()
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

// IsStatColumn reports whether name is a PlayerHandStat counter.
func IsStatColumn(name string) bool {
	loadColumns()
	_, ok := columnIndex[name]
	return ok
}

func (c statColumn) value(v reflect.Value) reflect.Value {
	f := v.FieldByIndex(c.index)
	if c.elem >= 0 {
		f = f.Index(c.elem)
	}
	return f
}

// Values returns the counters aligned with StatColumns.
func (s *PlayerHandStat) Values() []int64 {
	loadColumns()
	v := reflect.ValueOf(s).Elem()
	out := make([]int64, len(columns))
	for i, c := range columns {
		f := c.value(v)
		if f.Kind() == reflect.Bool {
			if f.Bool() {
				out[i] = 1
			}
			continue
		}
		out[i] = f.Int()
	}
	return out
}

// Counters returns the counters keyed by column name.
func (s *PlayerHandStat) Counters() Counters {
	names := StatColumns()
	vals := s.Values()
	out := make(Counters, len(names))
	for i, n := range names {
		out[n] = vals[i]
	}
	return out
}

// SetCounter assigns a counter by column name. It returns false when no
// such column exists.
func (s *PlayerHandStat) SetCounter(name string, val int64) bool {
	loadColumns()
	i, ok := columnIndex[name]
	if !ok {
		return false
	}
	f := columns[i].value(reflect.ValueOf(s).Elem())
	if f.Kind() == reflect.Bool {
		f.SetBool(val != 0)
	} else {
		f.SetInt(val)
	}
	return true
}
