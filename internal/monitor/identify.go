package monitor

import (
	"context"
	"fmt"

	"github.com/automaticats/feederd/internal/types"
)

// IdentifyCat captures one frame and runs it through the classifier,
// mapping the predicted class to a cat identity. The classifier is a fixed
// artifact loaded at start-up; without it, or without hardware,
// identification reports failure instead of crashing.
func (m *Monitor) IdentifyCat(ctx context.Context) types.IdentificationResult {
	if !m.backend.Available() {
		return types.IdentificationResult{Success: false, Error: "hardware not available"}
	}
	if m.model == nil {
		return types.IdentificationResult{Success: false, Error: "no trained classifier loaded"}
	}

	m.rig.Lock()
	frame, err := m.backend.Capture(ctx)
	m.rig.Unlock()
	if err != nil {
		return types.IdentificationResult{Success: false, Error: fmt.Sprintf("camera capture failed: %v", err)}
	}

	class, confidence, err := m.model.Classify(frame)
	if err != nil {
		return types.IdentificationResult{Success: false, Error: fmt.Sprintf("inference failed: %v", err)}
	}

	// Class indices are zero-based; registered cats hold the 1-based IDs
	// (the Unknown sentinel is reserved at ID 0), so class i is cat i+1.
	catID := int64(class) + 1

	name := fmt.Sprintf("Cat %d", catID)
	if m.cats != nil {
		if n, err := m.cats.CatName(catID); err == nil && n != "" {
			name = n
		}
	}

	return types.IdentificationResult{
		Success:    true,
		CatID:      catID,
		CatName:    name,
		Confidence: confidence,
	}
}
