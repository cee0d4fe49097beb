// Package pathmatch compiles route patterns of the form "/a/<int:id>/b"
// into an ordered matcher that extracts typed parameters from concrete
// request paths. See the grammar and resolution rules in the project's
// specification (§4.2): segments are literal text or typed parameters
// <type:name>, where type is one of str, int, float, path.
package pathmatch

import (
	"fmt"
	"regexp"
	"strings"

	"go.ratengine.dev/ratengine/internal/raterr"
)

// ParamType is the declared type of a path parameter.
type ParamType int

const (
	TypeStr ParamType = iota
	TypeInt
	TypeFloat
	TypePath
)

func (t ParamType) String() string {
	switch t {
	case TypeStr:
		return "str"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypePath:
		return "path"
	default:
		return "unknown"
	}
}

// specificity ranks types for the §4.2 tie-break: int > float > str > path.
func (t ParamType) specificity() int {
	switch t {
	case TypeInt:
		return 4
	case TypeFloat:
		return 3
	case TypeStr:
		return 2
	case TypePath:
		return 1
	default:
		return 0
	}
}

var (
	intRe   = regexp.MustCompile(`^-?[0-9]+$`)
	floatRe = regexp.MustCompile(`^-?[0-9]+\.[0-9]+$`)
)

// segment is one "/"-delimited element of a compiled pattern.
type segment struct {
	literal string // non-empty only when param == nil
	param   *paramDef
}

type paramDef struct {
	typ  ParamType
	name string
}

func (s segment) isParam() bool { return s.param != nil }

func (s segment) matchesOne(tok string) bool {
	switch s.param.typ {
	case TypeStr:
		return tok != ""
	case TypeInt:
		return intRe.MatchString(tok)
	case TypeFloat:
		return floatRe.MatchString(tok)
	default:
		return false
	}
}

// Pattern is a compiled route pattern.
type Pattern struct {
	raw        string
	segments   []segment
	literalCnt int
	hasPath    bool
}

// Compile parses and validates a pattern string, per §4.2's grammar.
// The legacy "<name>" form is equivalent to "<str:name>".
func Compile(pattern string) (*Pattern, error) {
	trimmed := strings.Trim(pattern, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	p := &Pattern{raw: pattern}
	for i, part := range parts {
		seg, err := compileSegment(part)
		if err != nil {
			return nil, raterr.New(raterr.KindValidation, "pathmatch.Compile", fmt.Errorf("pattern %q: %w", pattern, err))
		}
		if seg.isParam() && seg.param.typ == TypePath {
			if i != len(parts)-1 {
				return nil, raterr.New(raterr.KindValidation, "pathmatch.Compile",
					fmt.Errorf("pattern %q: <path:%s> must be the final segment", pattern, seg.param.name))
			}
			p.hasPath = true
		}
		if !seg.isParam() {
			p.literalCnt++
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

func compileSegment(part string) (segment, error) {
	if !strings.HasPrefix(part, "<") || !strings.HasSuffix(part, ">") {
		if strings.ContainsAny(part, "<>") {
			return segment{}, fmt.Errorf("malformed segment %q", part)
		}
		return segment{literal: part}, nil
	}

	inner := part[1 : len(part)-1]
	typ := TypeStr
	name := inner
	if idx := strings.IndexByte(inner, ':'); idx >= 0 {
		typeStr, nameStr := inner[:idx], inner[idx+1:]
		switch typeStr {
		case "str":
			typ = TypeStr
		case "int":
			typ = TypeInt
		case "float":
			typ = TypeFloat
		case "path":
			typ = TypePath
		default:
			return segment{}, fmt.Errorf("unknown parameter type %q", typeStr)
		}
		name = nameStr
	}
	if name == "" {
		return segment{}, fmt.Errorf("empty parameter name in %q", part)
	}
	return segment{param: &paramDef{typ: typ, name: name}}, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.raw }
