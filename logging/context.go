package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugTagCtxKey struct{}

const debugTagKey = "debug_tag"

// WithDebug returns a context under which CDebugw logs whatever the logger's level. The tag is
// attached to those entries so a single operation can be followed; an empty tag is replaced by
// a random one.
func WithDebug(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugTagCtxKey{}, tag)
}

// DebugTag returns the tag attached by WithDebug, or "" when ctx carries none.
func DebugTag(ctx context.Context) string {
	tag, _ := ctx.Value(debugTagCtxKey{}).(string)
	return tag
}
