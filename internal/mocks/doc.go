// Package mocks provides shared mock implementations for testing.
//
// # Usage
//
//	import "sitesmith/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    mockLLM := mocks.NewMockLLMClient()
//	    mockLLM.RespondWith("```html\n<h1>Hi</h1>\n```")
//	    // Pass mockLLM to workflow.NewOrchestrator...
//	}
//
// # Available Mocks
//
//   - MockLLMClient: Mock for the llm.LLMClient interface
package mocks
