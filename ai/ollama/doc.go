// Package ollama provides an ai.TextGenerator backed by the native Ollama API.
//
// Use it when the generation model is served by Ollama and the OpenAI
// compatibility layer is unavailable or undesired:
//
//	generator, err := ollama.NewGenerator(ai.NewConfig(
//	    ai.WithGeneratorProvider(ai.ProviderOllama),
//	    ai.WithGeneratorHost("http://localhost:11434"),
//	    ai.WithGeneratorModel("llama2"),
//	))
package ollama
