package irc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TagValue is the value of a single message tag.
type TagValue struct {
	Value string // the unescaped value.
	Flag  bool   // whether the key was sent without '='.
}

// Tags maps tag keys to their values.  Unknown keys are kept as is.
type Tags map[string]TagValue

func tagEscape(c rune) (escape rune) {
	switch c {
	case ':':
		escape = ';'
	case 's':
		escape = ' '
	case 'r':
		escape = '\r'
	case 'n':
		escape = '\n'
	default:
		escape = c
	}

	return
}

// UnescapeTagValue decodes an escaped tag value.  A trailing lone backslash
// is dropped.
func UnescapeTagValue(escaped string) (unescaped string) {
	var builder strings.Builder
	builder.Grow(len(escaped))
	escape := false

	for _, c := range escaped {
		if c == '\\' && !escape {
			escape = true
		} else {
			var cpp rune

			if escape {
				cpp = tagEscape(c)
			} else {
				cpp = c
			}

			builder.WriteRune(cpp)
			escape = false
		}
	}

	unescaped = builder.String()
	return
}

// EscapeTagValue is the inverse of UnescapeTagValue.
func EscapeTagValue(unescaped string) (escaped string) {
	var builder strings.Builder
	builder.Grow(len(unescaped))

	for _, c := range unescaped {
		switch c {
		case ';':
			builder.WriteString(`\:`)
		case ' ':
			builder.WriteString(`\s`)
		case '\\':
			builder.WriteString(`\\`)
		case '\r':
			builder.WriteString(`\r`)
		case '\n':
			builder.WriteString(`\n`)
		default:
			builder.WriteRune(c)
		}
	}

	escaped = builder.String()
	return
}

// ParseTags decodes a tag block, with or without its leading '@'.
func ParseTags(s string) (tags Tags) {
	s = strings.TrimPrefix(s, "@")
	tags = Tags{}

	for _, item := range strings.Split(s, ";") {
		if item == "" || item == "=" {
			continue
		}

		kv := strings.SplitN(item, "=", 2)
		if len(kv) < 2 {
			tags[kv[0]] = TagValue{Flag: true}
		} else {
			tags[kv[0]] = TagValue{Value: UnescapeTagValue(kv[1])}
		}
	}

	return
}

// String encodes the tags without the leading '@'.  Keys are sorted so that
// the output is stable.
func (tags Tags) String() string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i != 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
		v := tags[k]
		if !v.Flag {
			sb.WriteByte('=')
			sb.WriteString(EscapeTagValue(v.Value))
		}
	}
	return sb.String()
}

// Get returns the value of the given tag and whether it is present.
func (tags Tags) Get(key string) (value string, ok bool) {
	v, ok := tags[key]
	value = v.Value
	return
}

// Value returns the value of the given tag, or "" if absent.
func (tags Tags) Value(key string) string {
	return tags[key].Value
}

func (tags Tags) Has(key string) bool {
	_, ok := tags[key]
	return ok
}

// Bool reports whether the given tag is "1" or a bare flag.
func (tags Tags) Bool(key string) bool {
	v, ok := tags[key]
	return ok && (v.Flag || v.Value == "1")
}

// Int returns the given tag as an integer.  ok is false if the tag is absent
// or not a number.
func (tags Tags) Int(key string) (n int, ok bool) {
	v, present := tags[key]
	if !present {
		return
	}
	n, err := strconv.Atoi(v.Value)
	ok = err == nil
	return
}

// List splits a comma-separated tag value.  Empty values give an empty list.
func (tags Tags) List(key string) []string {
	v := tags[key].Value
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func (tags Tags) Set(key, value string) {
	tags[key] = TagValue{Value: value}
}

func (tags Tags) SetFlag(key string) {
	tags[key] = TagValue{Flag: true}
}

var errMalformedTag = errors.New("malformed tag value")

// ParseIntList decodes a comma-separated list of integers, such as the
// emote-sets tag.
func ParseIntList(s string) (list []int, err error) {
	if s == "" {
		return
	}
	for _, item := range strings.Split(s, ",") {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", errMalformedTag, item)
		}
		list = append(list, n)
	}
	return
}

func FormatIntList(list []int) string {
	items := make([]string, len(list))
	for i, n := range list {
		items[i] = strconv.Itoa(n)
	}
	return strings.Join(items, ",")
}

// Badge is one element of the badges and badge-info tags.
type Badge struct {
	Name    string
	Version string
}

// Badges keeps badges in the order the server sent them.
type Badges []Badge

// ParseBadges decodes "name/version,name/version".
func ParseBadges(s string) (badges Badges, err error) {
	if s == "" {
		return
	}
	for _, item := range strings.Split(s, ",") {
		kv := strings.SplitN(item, "/", 2)
		if len(kv) < 2 || kv[0] == "" {
			return nil, fmt.Errorf("%w: badge %q", errMalformedTag, item)
		}
		badges = append(badges, Badge{Name: kv[0], Version: kv[1]})
	}
	return
}

func (badges Badges) String() string {
	items := make([]string, len(badges))
	for i, b := range badges {
		items[i] = b.Name + "/" + b.Version
	}
	return strings.Join(items, ",")
}

func (badges Badges) Get(name string) (version string, ok bool) {
	for _, b := range badges {
		if b.Name == name {
			return b.Version, true
		}
	}
	return
}

func (badges Badges) Map() map[string]string {
	m := make(map[string]string, len(badges))
	for _, b := range badges {
		m[b.Name] = b.Version
	}
	return m
}

// Range is an inclusive span of character positions in a message.
type Range struct {
	Start int
	End   int
}

// EmotePositions lists the places of one emote in a message.
type EmotePositions struct {
	ID     string
	Ranges []Range
}

// Emotes keeps emotes in the order the server sent them.
type Emotes []EmotePositions

// ParseEmotes decodes "id:start-end,start-end/id:start-end".
func ParseEmotes(s string) (emotes Emotes, err error) {
	if s == "" {
		return
	}
	for _, item := range strings.Split(s, "/") {
		kv := strings.SplitN(item, ":", 2)
		if len(kv) < 2 || kv[0] == "" {
			return nil, fmt.Errorf("%w: emote %q", errMalformedTag, item)
		}
		e := EmotePositions{ID: kv[0]}
		for _, r := range strings.Split(kv[1], ",") {
			bounds := strings.SplitN(r, "-", 2)
			if len(bounds) < 2 {
				return nil, fmt.Errorf("%w: emote range %q", errMalformedTag, r)
			}
			start, err := strconv.Atoi(bounds[0])
			if err != nil {
				return nil, fmt.Errorf("%w: emote range %q", errMalformedTag, r)
			}
			end, err := strconv.Atoi(bounds[1])
			if err != nil {
				return nil, fmt.Errorf("%w: emote range %q", errMalformedTag, r)
			}
			e.Ranges = append(e.Ranges, Range{Start: start, End: end})
		}
		emotes = append(emotes, e)
	}
	return
}

func (emotes Emotes) String() string {
	var sb strings.Builder
	for i, e := range emotes {
		if i != 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(e.ID)
		sb.WriteByte(':')
		for j, r := range e.Ranges {
			if j != 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(r.Start))
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(r.End))
		}
	}
	return sb.String()
}

// Map returns the emote positions keyed by emote id, as "start-end" strings.
func (emotes Emotes) Map() map[string][]string {
	m := make(map[string][]string, len(emotes))
	for _, e := range emotes {
		for _, r := range e.Ranges {
			m[e.ID] = append(m[e.ID], strconv.Itoa(r.Start)+"-"+strconv.Itoa(r.End))
		}
	}
	return m
}
