// Package builder provides a fluent API for assembling workflow
// definitions. Builders are immutable: every With* and Add* method returns
// a copy, so partial graphs can be shared and extended independently.
package builder
