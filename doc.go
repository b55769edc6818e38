// Package vecrag is an embeddable retrieval-augmented generation pipeline.
//
// Documents are embedded with a sentence embedding model, stored in a vector
// collection (Redis, Valkey, pgvector or memory), retrieved by similarity and
// passed as context to a chat model.
//
//	client, _ := vecrag.New(
//	    vecrag.WithRedis("localhost:6379", ""),
//	    vecrag.WithOpenAIEmbedder("http://localhost:8081/v1", "", "paraphrase-multilingual-MiniLM-L12-v2"),
//	    vecrag.WithOpenAIGenerator("http://localhost:11434/v1", "ollama", "llama3"),
//	)
//	defer client.Close()
//
//	_, _ = client.Index(ctx, []vecrag.Document{{ID: 1, Text: "..."}})
//	answer, _ := client.Answer(ctx, "...")
//
// # Typed documents
//
//	type Note struct {
//	    ID   uint64 `vecrag:"id"`
//	    Body string `vecrag:"text"`
//	}
//
//	notes, _ := vecrag.NewIndex[Note](client, "notes")
//	_, _ = notes.Add(ctx, items...)
//	hits, _ := notes.Retrieve(ctx, "...", 3)
package vecrag
