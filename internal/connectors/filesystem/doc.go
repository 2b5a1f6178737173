// Package filesystem reads a corpus of markdown and text files from a
// directory tree and watches it for changes.
//
// Files may begin with a TOML front matter block delimited by "+++" lines:
//
//	+++
//	title = "Brute force triage"
//	tags = ["auth", "attack:t1110"]
//	section = "Identity"
//	vendor = "Okta"
//	+++
//
// Without a title in front matter the first level-one heading is used, then
// the file name. Hidden files and directories are skipped.
package filesystem
