// Package reference canonicalizes user supplied video references.
//
// Normalize maps the many equivalent URL forms of a video (short links,
// shorts, watch queries, embeds, mobile and music hosts) onto one canonical
// identifier and watch URL, and is a fixed point on its own output. Validate
// is the stricter predicate the pipeline applies before any download starts.
package reference
