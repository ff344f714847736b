package modelstore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
)

const (
	envelopeFormat  = "sgd-tfidf"
	envelopeVersion = 1

	// ChunkPrefix names the first chunk field; later chunks are
	// ChunkPrefix + "_part1", "_part2", ...
	ChunkPrefix = "model_blob_b64"
	// DefaultChunkSize keeps each chunk under the record store field limit.
	DefaultChunkSize = 200_000
)

type envelope struct {
	Format  string            `json:"format"`
	Version int               `json:"version"`
	Model   *classifier.Model `json:"model"`
}

const envelopeSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["format", "version", "model"],
  "properties": {
    "format": {"const": "sgd-tfidf"},
    "version": {"type": "integer", "minimum": 1},
    "model": {
      "type": "object",
      "required": ["vectorizer", "linear"],
      "properties": {
        "vectorizer": {
          "type": "object",
          "required": ["vocabulary", "doc_freq", "num_docs"],
          "properties": {
            "vocabulary": {"type": "object", "additionalProperties": {"type": "integer", "minimum": 0}},
            "doc_freq": {"type": "array", "items": {"type": "integer", "minimum": 0}},
            "num_docs": {"type": "integer", "minimum": 0},
            "ngram_max": {"type": "integer", "minimum": 0}
          }
        },
        "linear": {
          "type": "object",
          "required": ["classes", "weights", "intercepts", "loss"],
          "properties": {
            "classes": {"type": "array", "items": {"type": "string"}},
            "weights": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}},
            "intercepts": {"type": "array", "items": {"type": "number"}},
            "loss": {"enum": ["log_loss", "hinge"]},
            "alpha": {"type": "number"},
            "steps": {"type": "integer", "minimum": 0}
          }
        }
      }
    }
  }
}`

var envelopeSchema = mustCompileSchema(envelopeSchemaJSON)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("model_envelope.json", strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("modelstore: add schema: %v", err))
	}
	schema, err := compiler.Compile("model_envelope.json")
	if err != nil {
		panic(fmt.Sprintf("modelstore: compile schema: %v", err))
	}
	return schema
}

// Encode serializes m into its base64 blob.
func Encode(m *classifier.Model) (string, error) {
	if m == nil || m.Vectorizer == nil || m.Linear == nil {
		return "", domain.NewStoreError("modelstore.Encode", errors.New("model is empty"))
	}
	raw, err := json.Marshal(envelope{Format: envelopeFormat, Version: envelopeVersion, Model: m})
	if err != nil {
		return "", domain.NewStoreError("modelstore.Encode", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. Any malformed input is a StoreError.
func Decode(blob string) (*classifier.Model, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, domain.NewStoreError("modelstore.Decode: base64", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, domain.NewStoreError("modelstore.Decode: json", err)
	}
	if err := envelopeSchema.Validate(generic); err != nil {
		return nil, domain.NewStoreError("modelstore.Decode: schema", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, domain.NewStoreError("modelstore.Decode: json", err)
	}
	if err := checkShape(env.Model); err != nil {
		return nil, domain.NewStoreError("modelstore.Decode: shape", err)
	}
	return env.Model, nil
}

// checkShape verifies the dimensions the schema cannot express.
func checkShape(m *classifier.Model) error {
	v, l := m.Vectorizer, m.Linear
	if len(v.Vocabulary) != len(v.DocFreq) {
		return fmt.Errorf("vocabulary has %d terms but %d document frequencies", len(v.Vocabulary), len(v.DocFreq))
	}
	for term, idx := range v.Vocabulary {
		if idx >= len(v.DocFreq) {
			return fmt.Errorf("term %q has index %d out of range", term, idx)
		}
	}
	if len(l.Weights) != len(l.Classes) || len(l.Intercepts) != len(l.Classes) {
		return fmt.Errorf("%d classes but %d weight rows and %d intercepts", len(l.Classes), len(l.Weights), len(l.Intercepts))
	}
	for i, row := range l.Weights {
		if len(row) != len(v.DocFreq) {
			return fmt.Errorf("class %q has %d weights, want %d", l.Classes[i], len(row), len(v.DocFreq))
		}
	}
	return nil
}

// Chunk splits blob into pieces of at most size bytes.
func Chunk(blob string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if blob == "" {
		return nil
	}
	chunks := make([]string, 0, (len(blob)+size-1)/size)
	for len(blob) > size {
		chunks = append(chunks, blob[:size])
		blob = blob[size:]
	}
	return append(chunks, blob)
}

// chunkFields lays chunks out as record fields.
func chunkFields(chunks []string) map[string]any {
	fields := make(map[string]any, len(chunks)+1)
	for i, c := range chunks {
		fields[chunkKey(i)] = c
	}
	fields[fieldChunkCount] = len(chunks)
	return fields
}

// collectChunks reads chunks in order until the first missing part. When a
// chunk count was stored, a short sequence is an error.
func collectChunks(fields map[string]any) ([]string, error) {
	var chunks []string
	for i := 0; ; i++ {
		c, ok := fields[chunkKey(i)].(string)
		if !ok {
			break
		}
		chunks = append(chunks, c)
	}
	if want, ok := intField(fields[fieldChunkCount]); ok && want != len(chunks) {
		return nil, fmt.Errorf("found %d chunks, record declares %d", len(chunks), want)
	}
	return chunks, nil
}

func chunkKey(i int) string {
	if i == 0 {
		return ChunkPrefix
	}
	return ChunkPrefix + "_part" + strconv.Itoa(i)
}

func intField(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
