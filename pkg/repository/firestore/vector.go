package firestore

import (
	"cloud.google.com/go/firestore"
	"github.com/contech-ims/binsight/pkg/domain/model"
)

const (
	vectorEmbeddingField = "Embedding"
	vectorDistanceField  = "Distance"
)

// vectorDoc is the buildings/{bin}/vectors/{id} document. Embedding is
// stored as firestore.Vector32 for FindNearest vector search.
type vectorDoc struct {
	ID         string             `firestore:"ID"`
	Embedding  firestore.Vector32 `firestore:"Embedding"`
	BuildingID string             `firestore:"BuildingID"`
	DocumentID string             `firestore:"DocumentID"`
	Address    string             `firestore:"Address"`
	SourceLink string             `firestore:"SourceLink"`
	Text       string             `firestore:"Text"`
}

func toVectorDoc(r *model.VectorRecord) *vectorDoc {
	return &vectorDoc{
		ID:         string(r.ID),
		Embedding:  firestore.Vector32(r.Embedding),
		BuildingID: r.Metadata.BuildingID,
		DocumentID: r.Metadata.DocumentID,
		Address:    r.Metadata.Address,
		SourceLink: r.Metadata.SourceLink,
		Text:       r.Metadata.Text,
	}
}

func fromVectorDoc(d *vectorDoc) *model.VectorRecord {
	return &model.VectorRecord{
		ID:        model.RecordID(d.ID),
		Embedding: []float32(d.Embedding),
		Metadata: model.RecordMetadata{
			BuildingID: d.BuildingID,
			DocumentID: d.DocumentID,
			Address:    d.Address,
			SourceLink: d.SourceLink,
			Text:       d.Text,
		},
	}
}
