// Package llmfactory creates llms.Model instances from provider configuration.
// All supported providers speak the OpenAI Responses API: OPENAI, AZURE, AZURE_AD and PERPLEXITY.
package llmfactory
