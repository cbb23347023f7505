package bag

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Tag names managed or interpreted by this package. The three derived tags
// are recomputed on every save from the actual payload state.
const (
	TagPayloadOxum = "Payload-Oxum"
	TagBaggingDate = "Bagging-Date"
	TagBagSize     = "Bag-Size"
	TagIsVersionOf = "Is-Version-Of"
)

const baggingDateLayout = "2006-01-02"

// Info is the ordered key/value metadata stored in the bag-info tag file.
// A key may carry several values; duplicate keys merge into one entry with
// a multi-valued sequence, preserving first-seen key order.
type Info struct {
	order  []string
	values map[string][]string
}

// NewInfo creates an empty metadata map.
func NewInfo() *Info {
	return &Info{values: make(map[string][]string)}
}

// Add appends value under key, creating the key if absent. Values are not
// deduplicated.
func (i *Info) Add(key, value string) {
	if _, ok := i.values[key]; !ok {
		i.order = append(i.order, key)
	}
	i.values[key] = append(i.values[key], value)
}

// Set replaces all values stored under key.
func (i *Info) Set(key string, values ...string) {
	if _, ok := i.values[key]; !ok {
		i.order = append(i.order, key)
	}
	i.values[key] = slices.Clone(values)
}

// Remove deletes key and all its values. Removing an absent key is a no-op.
func (i *Info) Remove(key string) {
	if _, ok := i.values[key]; !ok {
		return
	}
	delete(i.values, key)
	i.order = slices.DeleteFunc(i.order, func(k string) bool { return k == key })
}

// Get returns the values for key, or nil when absent.
func (i *Info) Get(key string) []string {
	return slices.Clone(i.values[key])
}

// Keys returns the keys in insertion order.
func (i *Info) Keys() []string { return slices.Clone(i.order) }

// Len returns the number of distinct keys.
func (i *Info) Len() int { return len(i.values) }

// BaggingDate parses the Bagging-Date tag as an ISO date. It returns
// ErrNotFound when the tag is absent and ErrFormat when the stored value
// does not parse.
func (i *Info) BaggingDate() (time.Time, error) {
	v, err := i.single(TagBaggingDate)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(baggingDateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", ErrFormat, TagBaggingDate, v)
	}
	return t, nil
}

// SetBaggingDate replaces any stored Bagging-Date with the given date.
func (i *Info) SetBaggingDate(t time.Time) {
	i.Set(TagBaggingDate, t.Format(baggingDateLayout))
}

// IsVersionOf parses the Is-Version-Of tag as a URI. It returns ErrNotFound
// when the tag is absent and ErrFormat when the stored value does not parse.
func (i *Info) IsVersionOf() (*url.URL, error) {
	v, err := i.single(TagIsVersionOf)
	if err != nil {
		return nil, err
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", ErrFormat, TagIsVersionOf, v)
	}
	return u, nil
}

// SetIsVersionOf replaces any stored Is-Version-Of with the given URI.
// Typed tags hold at most one logical value even though the underlying
// store is multi-valued.
func (i *Info) SetIsVersionOf(u *url.URL) {
	i.Set(TagIsVersionOf, u.String())
}

func (i *Info) single(key string) (string, error) {
	vs := i.values[key]
	if len(vs) == 0 {
		return "", fmt.Errorf("%w: tag %s", ErrNotFound, key)
	}
	if len(vs) > 1 {
		return "", fmt.Errorf("%w: tag %s has %d values", ErrFormat, key, len(vs))
	}
	return vs[0], nil
}

func (i *Info) clone() *Info {
	c := &Info{
		order:  slices.Clone(i.order),
		values: make(map[string][]string, len(i.values)),
	}
	for k, v := range i.values {
		c.values[k] = slices.Clone(v)
	}
	return c
}

// serialize renders the bag-info file content: "Key: value" per line, one
// line per value, keys in insertion order. Long values are not wrapped.
func (i *Info) serialize() []byte {
	var buf bytes.Buffer
	for _, k := range i.order {
		for _, v := range i.values[k] {
			fmt.Fprintf(&buf, "%s: %s\n", k, v)
		}
	}
	return buf.Bytes()
}

// parseInfo reads bag-info content. Lines starting with whitespace continue
// the previous value; repeated keys accumulate values in order.
func parseInfo(data []byte) (*Info, error) {
	info := NewInfo()
	var lastKey string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				return nil, fmt.Errorf("%w: continuation without a tag: %q", ErrFormat, line)
			}
			vs := info.values[lastKey]
			vs[len(vs)-1] += " " + strings.TrimLeft(line, " \t")
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: tag line %q", ErrFormat, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: tag line %q", ErrFormat, line)
		}
		info.Add(key, strings.TrimSpace(value))
		lastKey = key
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return info, nil
}
