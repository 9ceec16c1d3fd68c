/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tsdb

import (
	"strings"
	"unicode"
)

// splitSQLStatements splits a migration file on top-level semicolons,
// ignoring those inside quotes, comments and dollar-quoted bodies.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	state := &sqlParseState{}

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}

		current.Reset()
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch {
		case state.inLineComment:
			if ch == '\n' {
				state.inLineComment = false

				current.WriteByte(ch)
			}

			continue
		case state.inBlockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				state.inBlockComment = false
				i++
			}

			continue
		case state.dollarTag != "":
			if strings.HasPrefix(content[i:], state.dollarTag) {
				current.WriteString(state.dollarTag)
				i += len(state.dollarTag) - 1
				state.dollarTag = ""

				continue
			}

			current.WriteByte(ch)

			continue
		}

		if !state.inSingleQuote && !state.inDoubleQuote {
			if ch == '-' && i+1 < len(content) && content[i+1] == '-' {
				state.inLineComment = true
				i++

				continue
			}

			if ch == '/' && i+1 < len(content) && content[i+1] == '*' {
				state.inBlockComment = true
				i++

				continue
			}

			if tag, advance := parseDollarTag(content[i:]); tag != "" {
				state.dollarTag = tag
				current.WriteString(tag)
				i += advance - 1

				continue
			}

			if ch == ';' {
				flush()

				continue
			}
		}

		switch {
		case ch == '\'' && !state.inDoubleQuote:
			state.inSingleQuote = !state.inSingleQuote
		case ch == '"' && !state.inSingleQuote:
			state.inDoubleQuote = !state.inDoubleQuote
		}

		current.WriteByte(ch)
	}

	flush()

	return statements
}

type sqlParseState struct {
	inSingleQuote  bool
	inDoubleQuote  bool
	inLineComment  bool
	inBlockComment bool
	dollarTag      string
}

func parseDollarTag(content string) (string, int) {
	if content == "" || content[0] != '$' {
		return "", 0
	}

	for i := 1; i < len(content); i++ {
		if content[i] == '$' {
			return content[:i+1], i + 1
		}

		if !isDollarTagChar(content[i]) {
			return "", 0
		}
	}

	return "", 0
}

func isDollarTagChar(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch))
}

func extractVersion(filename string) string {
	version, _, _ := strings.Cut(filename, "_")

	return version
}
