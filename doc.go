// Package birdmatch embeds the bird species semantic search engine in-process.
//
// A Client connects to a Redis/Valkey or PostgreSQL species store, embeds
// free-text descriptions through an OpenAI-compatible provider and ranks every
// stored species by cosine similarity:
//
//	c, err := birdmatch.New(ctx,
//		birdmatch.WithValkey("localhost:6379", ""),
//		birdmatch.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	resp, err := c.Search(ctx, "small red bird with a black mask", birdmatch.Limit(5))
package birdmatch
