//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"kbchat/internal/adapter/chunker"
	"kbchat/internal/adapter/language"
)

// Browser bindings for previewing how a document will be chunked before
// it is uploaded. The admin UI calls these to show section boundaries
// and detected languages client-side.

var chunkers = map[string]*chunker.SectionChunker{
	"headings":   chunker.New(1000, chunker.SplitHeadings),
	"paragraphs": chunker.New(1000, chunker.SplitParagraphs),
}

func main() {
	c := make(chan struct{})

	js.Global().Set("kbchatChunk", js.FuncOf(chunkContent))
	js.Global().Set("kbchatDetectLanguage", js.FuncOf(detectLanguage))

	<-c
}

func chunkContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeError("usage: kbchatChunk(documentId, content, policy)")
	}

	docID := args[0].String()
	content := args[1].String()
	policy := args[2].String()

	chk, ok := chunkers[policy]
	if !ok {
		return makeError("unknown policy: " + policy + " (want headings or paragraphs)")
	}

	sections, err := chk.Chunk(docID, content)
	if err != nil {
		return makeError("chunking failed: " + err.Error())
	}

	data, err := json.Marshal(map[string]interface{}{
		"documentId": docID,
		"chunkCount": len(sections),
		"sections":   sections,
	})
	if err != nil {
		return makeError("encoding failed: " + err.Error())
	}
	return string(data)
}

func detectLanguage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: kbchatDetectLanguage(text)")
	}
	code := language.Detect(args[0].String())
	data, _ := json.Marshal(map[string]string{
		"language": code,
		"name":     language.Name(code),
	})
	return string(data)
}

func makeError(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
