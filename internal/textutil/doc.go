// Package textutil provides filename sanitization for transcript artifacts.
//
// Video identifiers are case-sensitive, so sanitization only replaces
// characters that are unsafe on common filesystems and never changes case.
package textutil
