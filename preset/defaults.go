package preset

import (
	"time"

	"github.com/martinemde/archivist/unifiedllm"
)

var defaults = []Preset{
	{
		Name:             "transcribe",
		Description:      "Recognise the handwriting on a page scan",
		Engine:           "gemini-2.5-pro",
		SystemPrompt:     "You are an expert palaeographer transcribing historical manuscripts. Preserve original spelling, punctuation and line breaks.",
		UserPrompt:       "Transcribe the handwritten text in this image. Begin your answer with \"Transcription:\" and write nothing before it.\n\nPrevious OCR, if any:\n{text_to_process}",
		Temperature:      0.2,
		UseImages:        true,
		ValidationMarker: "Transcription:",
		Timeout:          3 * time.Minute,
	},
	{
		Name:             "correct",
		Description:      "Correct recognition errors against the page scan",
		Engine:           "claude-sonnet-4-5",
		SystemPrompt:     "You correct transcriptions of historical documents. Fix misread words only; never modernise spelling.",
		UserPrompt:       "Correct this transcription. Reply with \"Corrected Text:\" followed by the corrected text.\n\n{text_to_process}",
		Temperature:      0.2,
		UseImages:        true,
		ValidationMarker: "Corrected Text:",
	},
	{
		Name:             "translate",
		Description:      "Translate the transcription into English",
		Engine:           "gpt-4o",
		SystemPrompt:     "You translate historical documents into clear modern English while keeping names and places as written.",
		UserPrompt:       "Translate the following text. Reply with \"Translation:\" followed by the translation.\n\n{text_to_process}",
		Temperature:      0.3,
		ValidationMarker: "Translation:",
	},
	{
		Name:             "metadata",
		Description:      "Catalogue a whole document",
		Engine:           "claude-sonnet-4-5",
		SystemPrompt:     "You are an archivist cataloguing historical documents.",
		UserPrompt:       "Produce catalogue metadata for the document below. Start with \"Metadata:\" and then give each of these headings on its own line: Document Type, Author, Correspondent, Date, Place, Summary.\n\n{text_to_process}",
		Temperature:      0.3,
		ValidationMarker: "Metadata:",
		Classification:   unifiedllm.ClassificationMetadata,
		RequiredFields:   []string{"Document Type", "Author", "Correspondent", "Date", "Place", "Summary"},
	},
	{
		Name:           "relevance",
		Description:    "Judge each page against a research question",
		Engine:         "gpt-4o",
		SystemPrompt:   "You assess historical pages for a research project.",
		UserPrompt:     "For each page in the JSON array below, decide whether it is relevant to the study of trade and shipping. Return only a JSON array of objects with the keys \"index\", \"Relevance\" (Relevant, Partially Relevant or Irrelevant) and \"Justification\". Pages that share a verdict may share one object whose index lists them comma-separated.\n\n{text_to_process}",
		Temperature:    0.2,
		Classification: unifiedllm.ClassificationAnalysis,
		ChunkSize:      25,
	},
	{
		Name:           "locations",
		Description:    "Track where each page was written",
		Engine:         "gemini-2.5-flash",
		SystemPrompt:   "You determine where historical diary and letter pages were written.",
		UserPrompt:     "For each page in the JSON array below, identify the place it was written. Return only a JSON array of objects with the keys \"index\" and \"Location\". Consecutive pages written in the same place may share one object whose index lists them comma-separated. If a page gives no place, assume it continues the previous one.\n\n{text_to_process}",
		Temperature:    0.2,
		Classification: unifiedllm.ClassificationExtraction,
		ChunkSize:      25,
	},
}
