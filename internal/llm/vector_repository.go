package llm

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// StoredEmbedding is one persisted dish vector plus the hash of the text
// it was computed from, used to skip re-embedding unchanged dishes.
type StoredEmbedding struct {
	DishID    string
	Embedding []float32
	TextHash  string
}

// VectorRepository stores dish embeddings as little-endian float32 blobs
// and ranks them by cosine similarity in process. The dish library is
// small enough that a linear scan serves; no vector database needed.
type VectorRepository struct {
	db *sql.DB
}

// NewVectorRepository creates a repository over the given database.
func NewVectorRepository(d *sql.DB) *VectorRepository {
	return &VectorRepository{db: d}
}

// Save upserts the embedding for a dish.
func (r *VectorRepository) Save(ctx context.Context, dishID string, embedding []float32, textHash string) error {
	blob, err := float32SliceToByteSlice(embedding)
	if err != nil {
		return fmt.Errorf("failed to convert float32 slice to byte slice: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dish_embeddings (dish_id, embedding, text_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(dish_id) DO UPDATE SET embedding = excluded.embedding, text_hash = excluded.text_hash`,
		dishID, blob, textHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// Get retrieves the stored embedding for a dish. Returns nil when the
// dish has no embedding yet.
func (r *VectorRepository) Get(ctx context.Context, dishID string) (*StoredEmbedding, error) {
	var (
		blob []byte
		hash string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT embedding, text_hash FROM dish_embeddings WHERE dish_id = ?`, dishID,
	).Scan(&blob, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get embedding by dish ID: %w", err)
	}

	embedding, err := byteSliceToFloat32Slice(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to convert byte slice to float32 slice: %w", err)
	}
	return &StoredEmbedding{DishID: dishID, Embedding: embedding, TextHash: hash}, nil
}

// FindSimilar returns up to limit dish IDs ranked by cosine similarity
// to the query vector, best first.
func (r *VectorRepository) FindSimilar(ctx context.Context, query []float32, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT dish_id, embedding FROM dish_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	type scoredDish struct {
		dishID string
		score  float64
	}
	var scored []scoredDish

	for rows.Next() {
		var (
			dishID string
			blob   []byte
		)
		if err := rows.Scan(&dishID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		embedding, convErr := byteSliceToFloat32Slice(blob)
		if convErr != nil {
			continue
		}
		scored = append(scored, scoredDish{dishID: dishID, score: cosineSimilarity(query, embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate embeddings: %w", err)
	}

	slices.SortFunc(scored, func(a, b scoredDish) int {
		return cmp.Compare(b.score, a.score)
	})

	if limit > len(scored) {
		limit = len(scored)
	}
	result := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		result = append(result, scored[i].dishID)
	}
	return result, nil
}

// float32SliceToByteSlice converts a slice of float32 to a byte slice.
func float32SliceToByteSlice(floats []float32) ([]byte, error) {
	if len(floats) == 0 {
		return nil, nil
	}
	buf := make([]byte, 4*len(floats)) // 4 bytes per float32
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
	return buf, nil
}

// byteSliceToFloat32Slice converts a byte slice back to float32 values.
func byteSliceToFloat32Slice(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length is not a multiple of 4")
	}
	floats := make([]float32, len(b)/4)
	for i := 0; i < len(b)/4; i++ {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return floats, nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
