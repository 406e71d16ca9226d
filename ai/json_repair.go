// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import "strings"

// repairJSON rewrites the formatting defects models commonly put in JSON
// array replies so the result can be unmarshalled. Outside of strings it
// drops trailing commas before ] or }, turns single-quoted and typographic
// quoted strings into plain double-quoted ones and quotes bare object keys.
// String contents are copied unchanged apart from quote escaping.
func repairJSON(s string) string {
	in := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 16)

	for i := 0; i < len(in); {
		ch := in[i]
		switch {
		case ch == '"' || ch == '“' || ch == '”' || ch == '\'' || ch == '‘' || ch == '’':
			i = copyString(&out, in, i+1, ch)
		case ch == ',':
			j := skipSpace(in, i+1)
			if j == len(in) || in[j] == ']' || in[j] == '}' {
				i++
				continue
			}
			out.WriteRune(ch)
			i = quoteKey(&out, in, i+1)
		case ch == '{':
			out.WriteRune(ch)
			i = quoteKey(&out, in, i+1)
		default:
			out.WriteRune(ch)
			i++
		}
	}
	return out.String()
}

// copyString writes the string starting at in[i] (just past the open
// quote) as a double-quoted JSON string and returns the index after the
// closing quote. An unterminated string runs to the end of input.
// A plain quote only closes on its plain twin. A typographic one also
// accepts its typographic closer.
func copyString(out *strings.Builder, in []rune, i int, open rune) int {
	single := open == '\'' || open == '‘' || open == '’'
	closers := map[rune]bool{'"': !single, '\'': single}
	if open == '“' || open == '”' {
		closers['”'] = true
	}
	if open == '‘' || open == '’' {
		closers['’'] = true
	}

	out.WriteByte('"')
	for ; i < len(in); i++ {
		ch := in[i]
		switch {
		case ch == '\\' && i+1 < len(in):
			if single && in[i+1] == '\'' {
				out.WriteRune('\'')
			} else {
				out.WriteRune(ch)
				out.WriteRune(in[i+1])
			}
			i++
		case closers[ch]:
			out.WriteByte('"')
			return i + 1
		case single && ch == '"':
			out.WriteString(`\"`)
		default:
			out.WriteRune(ch)
		}
	}
	out.WriteByte('"')
	return i
}

// quoteKey handles the position after { or ,. A bare identifier followed by
// a colon, or by a lone closing quote and a colon, is written as a quoted key.
// Anything else is left for the main loop.
func quoteKey(out *strings.Builder, in []rune, i int) int {
	j := skipSpace(in, i)
	for ; i < j; i++ {
		out.WriteRune(in[i])
	}
	if i == len(in) || !isIdentStart(in[i]) {
		return i
	}
	end := i
	for end < len(in) && isIdent(in[end]) {
		end++
	}
	ident := string(in[i:end])
	if end+1 < len(in) && in[end] == '"' && in[end+1] == ':' {
		out.WriteString(`"` + ident + `"`)
		return end + 1
	}
	if k := skipSpace(in, end); k < len(in) && in[k] == ':' {
		out.WriteString(`"` + ident + `"`)
		return end
	}
	out.WriteString(ident)
	return end
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
		i++
	}
	return i
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdent(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
