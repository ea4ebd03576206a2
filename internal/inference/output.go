package inference

import (
	"encoding/json"
	"fmt"
)

type Output struct {
	GeneratedOutputs []string `json:"generated_outputs_s3"`
}

// AudioLocations returns the s3:// locations of the generated audio files. A
// result object that is not a JSON manifest is itself the audio file.
func AudioLocations(output []byte, outputLocation string) ([]string, error) {
	var parsed Output
	if err := json.Unmarshal(output, &parsed); err != nil {
		if json.Valid(output) {
			return nil, fmt.Errorf("unexpected inference output format: %w", err)
		}
		return []string{outputLocation}, nil
	}
	if len(parsed.GeneratedOutputs) == 0 {
		return nil, fmt.Errorf("inference output at %s lists no generated files", outputLocation)
	}
	return parsed.GeneratedOutputs, nil
}
