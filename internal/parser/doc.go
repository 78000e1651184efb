// Package parser reads and writes the search index files a documentation
// generator emits next to its HTML pages.
//
// Each file is a JavaScript literal consumed by the client-side search box:
//
//	var searchData=
//	[
//	  ['getx_515',['getX',['../class_sound_info.html#abc9',1,'SoundInfo']]],
//	  ['grass_520',['Grass',['../class_grass.html#afbc',1,'Grass']]]
//	];
//
// Every row is [key, [displayName, occurrence...]] and every occurrence is
// [anchorUrl, linkFlag, ownerLabel].
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile("html/search/functions_6.js")
//	if err != nil {
//	    return err
//	}
//
//	for _, entry := range result.Entries {
//	    fmt.Printf("%s: %d occurrence(s)\n", entry.DisplayName, len(entry.Occurrences))
//	}
//
// Syntax errors abort the parse with a *SyntaxError carrying the position.
// Rows with the wrong shape are collected in ParseResult.Errors and skipped.
//
// # File Names
//
// Files are named <category>_<section>.js, where section is the first-letter
// bucket of the entries it holds, written in hex (all_9.js, all_a.js,
// all_10.js). SplitFileName and IsSearchDataFile decode
// that convention; search.js and searchdata.js are widget code and are
// rejected.
//
// # Keys
//
// Keys are the display name run through NormalizeKey plus "_<id>", where id
// is the generator's running counter. NormalizeKey lowercases ASCII letters
// and hex-escapes punctuation, so "GLOBAL_SCALE" becomes "global_5fscale".
//
// # Writing
//
// Encode produces the generator's exact layout, so an index parsed from disk
// and written back is byte-identical.
package parser
