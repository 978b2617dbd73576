package speech

import (
	"fmt"

	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

type RecognitionConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	Model                      string `json:"model"`
}

type RecognitionAudio struct {
	URI string `json:"uri"`
}

type LongRunningRecognizeRequest struct {
	Config RecognitionConfig `json:"config"`
	Audio  RecognitionAudio  `json:"audio"`
}

// Status is the error payload of a failed call or operation.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func (s *Status) String() string {
	if s == nil {
		return ""
	}
	if s.Status != "" {
		return fmt.Sprintf("%s (%d): %s", s.Status, s.Code, s.Message)
	}
	return fmt.Sprintf("code %d: %s", s.Code, s.Message)
}

type SpeechRecognitionAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type SpeechRecognitionResult struct {
	Alternatives []SpeechRecognitionAlternative `json:"alternatives"`
	LanguageCode string                         `json:"languageCode,omitempty"`
}

type LongRunningRecognizeResponse struct {
	Results []SpeechRecognitionResult `json:"results"`
}

// Operation is the long-running operation resource returned by submit and poll.
type Operation struct {
	Name     string                        `json:"name"`
	Done     bool                          `json:"done"`
	Error    *Status                       `json:"error,omitempty"`
	Response *LongRunningRecognizeResponse `json:"response,omitempty"`
}

// State maps the operation onto the job lifecycle. An error wins over done.
func (o *Operation) State() entity.JobState {
	switch {
	case o.Error != nil:
		return entity.JobDoneError
	case o.Done:
		return entity.JobDoneSuccess
	default:
		return entity.JobRunning
	}
}

func (o *Operation) Job() entity.TranscriptionJob {
	return entity.TranscriptionJob{Name: o.Name, State: o.State()}
}

// Transcript returns alternative 0 of result 0. A present alternative with
// empty text is a valid result.
func (o *Operation) Transcript() (string, bool) {
	if o.Response == nil || len(o.Response.Results) == 0 {
		return "", false
	}
	alts := o.Response.Results[0].Alternatives
	if len(alts) == 0 {
		return "", false
	}
	return alts[0].Transcript, true
}
