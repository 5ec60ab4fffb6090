package repository

import "strings"

// likeEscaper escapes the LIKE wildcards so user input matches literally.
// Queries using the result must declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search fragment into a LIKE pattern matching any
// value that contains it.
func ContainsPattern(fragment string) string {
	return "%" + likeEscaper.Replace(fragment) + "%"
}
