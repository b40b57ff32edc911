// Package model holds the document representation shared by every pipeline
// stage. Values are built once by the stage that owns them and never mutated
// afterwards.
package model

// DocumentMetadata describes the source file.
type DocumentMetadata struct {
	FileType  string  `json:"file_type"`            // pdf, docx, png, jpg, ...
	FileSize  int64   `json:"file_size"`            // bytes, as read from disk
	Pages     *int    `json:"pages,omitempty"`      // paginated formats only
	Title     *string `json:"title,omitempty"`      // only when the container encodes it
	Author    *string `json:"author,omitempty"`     //
	CreatedAt *string `json:"created_at,omitempty"` // RFC 3339 when parseable, raw otherwise
}

// ImageData is one raster image found in a document.
type ImageData struct {
	ID     string     `json:"id"` // unique within the document
	Format string     `json:"format"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Data   []byte     `json:"data"`
	Layout *Placement `json:"layout,omitempty"` // set when the decoder knows where the image is drawn
}

// Placement is a page-space rectangle reported by a decoder. Coordinates use a
// top-left origin in PDF points.
type Placement struct {
	Page   int     `json:"page"` // 1-based
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TableData is a recovered table. Every row has exactly len(Headers) cells;
// use NewTable to build one from ragged input.
type TableData struct {
	Rows    [][]string `json:"rows"`
	Headers []string   `json:"headers"`
}

// BlockHint carries layout signals for one paragraph-level run of text, in
// document order. Decoders emit hints when they have more than plain text to
// offer; the normalizer uses them for classification.
type BlockHint struct {
	Text     string  `json:"text"`
	Style    string  `json:"style,omitempty"`     // decoder style name, e.g. Heading1, ListBullet
	Level    int     `json:"level,omitempty"`     // heading level 1-6 when known
	FontSize float64 `json:"font_size,omitempty"` // average glyph size in points
	Indent   float64 `json:"indent,omitempty"`    // left offset from the page's body margin
	Page     int     `json:"page,omitempty"`
}

// ExtractedContent is the decoder output.
type ExtractedContent struct {
	Text     string           `json:"text"`
	Images   []ImageData      `json:"images"`
	Tables   []TableData      `json:"tables"`
	Metadata DocumentMetadata `json:"metadata"`
	Hints    []BlockHint      `json:"hints,omitempty"`
}

// Block types produced by the normalizer.
const (
	BlockHeading   = "heading"
	BlockParagraph = "paragraph"
	BlockBullet    = "bullet"
	BlockCaption   = "caption"
	BlockContent   = "content"
)

// TextBlock is a classified span of text.
type TextBlock struct {
	Content    string  `json:"content"`
	BlockType  string  `json:"block_type"`
	Confidence float64 `json:"confidence"` // 0.0-1.0
}

// Visual element types.
const (
	ElementImage   = "image"
	ElementChart   = "chart"
	ElementDiagram = "diagram"
)

// VisualElement places an image in document space. Position and Size are
// [x, y] and [width, height].
type VisualElement struct {
	ElementType string `json:"element_type"`
	Position    [2]int `json:"position"`
	Size        [2]int `json:"size"`
	Page        int    `json:"page,omitempty"`
	ImageID     string `json:"image_id,omitempty"`
}

// Section is a heading and the number of blocks under it.
type Section struct {
	Title         string `json:"title"`
	ContentBlocks int    `json:"content_blocks"`
}

// DocumentStructure is the coarse document outline.
type DocumentStructure struct {
	Sections   []Section `json:"sections"`
	TotalPages int       `json:"total_pages"` // never below 1
	Language   *string   `json:"language,omitempty"`
}

// ProcessedData is the structuring output.
type ProcessedData struct {
	TextBlocks     []TextBlock       `json:"text_blocks"`
	VisualElements []VisualElement   `json:"visual_elements"`
	Structure      DocumentStructure `json:"structure"`
}

// DocumentResult is the externally visible envelope for one document.
type DocumentResult struct {
	Extracted        ExtractedContent `json:"extracted"`
	Processed        ProcessedData    `json:"processed"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}
