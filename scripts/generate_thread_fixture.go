//go:build ignore

// Generates a flat message list for exercising thread building, e.g.
//
//	go run scripts/generate_thread_fixture.go -depth 500 -fanout 3 | agoractl thread - --flat
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

type message struct {
	ReplyToID *int      `json:"replyToId"`
	ID        int       `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Escalating back-and-forth used for the deep chain
var deepThreadConversation = []string{
	"Has the referendum passed the decision deposit yet?",
	"Not yet, it still needs a second placed before the period ends",
	"Who is even backing it? The proposer has no on-chain identity",
	"They do now, set it this morning with a judgement pending",
	"A pending judgement is not the same as a verified one",
	"Fair, but the sub-identity under it is from a known council member",
	"Then the parent should be vouching in the discussion, not a fresh account",
	"They are delegating to it, which is basically vouching",
	"Delegation is about votes, not about trusting a proposal text",
	"So we are back to waiting for the registrar. Classic governance Tuesday",
}

var authors = []string{
	"15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5",
	"14E5nqKAp3oAJcmzgZhUD2RcptBeUBScxKHgJKU4HPNcKVf3",
	"HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F",
}

func main() {
	depth := flag.Int("depth", 50, "length of the single deepest reply chain")
	fanout := flag.Int("fanout", 2, "replies attached to every chain message")
	orphans := flag.Int("orphans", 3, "replies pointing at ids outside the list")
	shuffle := flag.Bool("shuffle", true, "emit messages in random order")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var messages []message
	nextID := 1
	add := func(parent *int, text string) int {
		id := nextID
		nextID++
		messages = append(messages, message{
			ID:        id,
			ReplyToID: parent,
			Author:    authors[id%len(authors)],
			Text:      text,
			CreatedAt: start.Add(time.Duration(id) * time.Minute),
		})
		return id
	}

	var parent *int
	for level := 0; level < *depth; level++ {
		id := add(parent, deepThreadConversation[level%len(deepThreadConversation)])
		for i := 0; i < *fanout; i++ {
			p := id
			add(&p, fmt.Sprintf("side reply %d at level %d", i+1, level+1))
		}
		p := id
		parent = &p
	}

	for i := 0; i < *orphans; i++ {
		missing := -(i + 1)
		add(&missing, "reply to a message that was deleted")
	}

	if *shuffle {
		rng.Shuffle(len(messages), func(i, j int) { messages[i], messages[j] = messages[j], messages[i] })
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(map[string]any{"messages": messages}); err != nil {
		log.Fatalf("failed to write fixture: %v", err)
	}
	log.Printf("generated %d messages (chain depth %d, %d orphans)", len(messages), *depth, *orphans)
}
