package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns free text into an ILIKE pattern matching it anywhere.
// LIKE wildcards in the input are escaped so they match literally.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
