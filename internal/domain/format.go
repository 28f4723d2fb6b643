package domain

import "bytes"

// ArchiveFormat classifies a database dump by the leading bytes of its
// (decompressed) content.
type ArchiveFormat int

const (
	// FormatUnknown means the header matched no known dump format. A
	// restore must stop before touching the database when it sees this.
	FormatUnknown ArchiveFormat = iota

	// FormatCustom is pg_dump's custom archive format, restored with
	// pg_restore. Identified by the stable "PGDMP" magic.
	FormatCustom

	// FormatPlainSQL is a plain-text SQL script, replayed with psql.
	FormatPlainSQL
)

func (f ArchiveFormat) String() string {
	switch f {
	case FormatCustom:
		return "custom"
	case FormatPlainSQL:
		return "plain-sql"
	default:
		return "unknown"
	}
}

// HeaderLen is how many leading bytes DetectFormat needs.
const HeaderLen = 5

var pgdmpMagic = []byte("PGDMP")

// DetectFormat sniffs a dump's format from the first HeaderLen bytes of its
// content. The custom-format check is an exact magic match. The plain-SQL
// check is a heuristic: dumps produced by pg_dump open with either a comment
// ("--") or a SET statement, so a header containing one of those tokens is
// treated as SQL. Anything else is FormatUnknown.
func DetectFormat(header []byte) ArchiveFormat {
	if bytes.HasPrefix(header, pgdmpMagic) {
		return FormatCustom
	}
	if bytes.Contains(header, []byte("--")) || bytes.Contains(header, []byte("SET")) {
		return FormatPlainSQL
	}
	return FormatUnknown
}
