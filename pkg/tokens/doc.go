// Package tokens provides token count estimation for LLM-bound text.
//
// The estimates produced here size the rendered cache context before it is
// sent to the provider. They are advisory: actual billed token counts come
// from the provider's usage block and flow through the costs package.
package tokens
