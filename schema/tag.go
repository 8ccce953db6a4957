package schema

import (
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DefaultTagName is the struct tag consulted when Options.TagName is unset
// by DefaultOptions.
const DefaultTagName = "prop"

// ParsedTag is the property configuration carried by a struct field tag.
type ParsedTag struct {
	Alias     string // name the field also answers to
	Skip      bool   // `prop:"-"`: the field is hidden from property lookup
	ReadOnly  bool   // setter is not synthesized
	WriteOnly bool   // getter is not synthesized
}

// TagParser parses property tags and caches the results, since the same tag
// text tends to repeat across many fields.
//
// Supported syntax:
//
//	`prop:"alias"`               // field also answers to "alias"
//	`prop:"name:alias;readonly"` // explicit alias plus flags
//	`prop:";writeonly"`          // flags only
//	`prop:"-"`                   // hide the field
type TagParser struct {
	tagName string
	cache   map[string]*ParsedTag
	cacheMu sync.RWMutex
}

// NewTagParser returns a parser for struct tags under tagName.
func NewTagParser(tagName string) *TagParser {
	return &TagParser{
		tagName: tagName,
		cache:   make(map[string]*ParsedTag, 32),
	}
}

var tagParsers sync.Map // map[string]*TagParser

// tagParserFor returns the shared parser for a tag name.
func tagParserFor(tagName string) *TagParser {
	if p, ok := tagParsers.Load(tagName); ok {
		return p.(*TagParser)
	}
	p, _ := tagParsers.LoadOrStore(tagName, NewTagParser(tagName))
	return p.(*TagParser)
}

// ParseTag returns the parsed tag of a field, or nil when the field has no
// tag under the parser's name.
func (p *TagParser) ParseTag(fieldName string, tag reflect.StructTag) (*ParsedTag, error) {
	if p.tagName == "" {
		return nil, nil
	}
	tagValue, ok := tag.Lookup(p.tagName)
	if !ok {
		return nil, nil
	}

	p.cacheMu.RLock()
	cached, exists := p.cache[tagValue]
	p.cacheMu.RUnlock()
	if exists {
		return cached, nil
	}

	parsed, err := parseTagValue(tagValue)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", fieldName)
	}

	p.cacheMu.Lock()
	p.cache[tagValue] = parsed
	p.cacheMu.Unlock()

	return parsed, nil
}

func parseTagValue(tagValue string) (*ParsedTag, error) {
	if tagValue == "-" {
		return &ParsedTag{Skip: true}, nil
	}

	parsed := &ParsedTag{}
	if !strings.ContainsAny(tagValue, ";:") {
		parsed.Alias = strings.TrimSpace(tagValue)
		return parsed, nil
	}

	for i, option := range strings.Split(tagValue, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if key, val, ok := strings.Cut(option, ":"); ok {
			if strings.TrimSpace(key) != "name" {
				return nil, errors.Errorf("unknown tag key %q", key)
			}
			parsed.Alias = strings.TrimSpace(val)
			continue
		}
		switch option {
		case "readonly":
			parsed.ReadOnly = true
		case "writeonly":
			parsed.WriteOnly = true
		default:
			if i == 0 {
				parsed.Alias = option
				continue
			}
			return nil, errors.Errorf("unknown tag flag %q", option)
		}
	}

	if parsed.ReadOnly && parsed.WriteOnly {
		return nil, errors.New("readonly and writeonly are exclusive")
	}
	return parsed, nil
}
