package course

// Lesson is a single lesson inside a course transcript
type Lesson struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	Content string `json:"-"`
}

// Document is one parsed course transcript. It is immutable after parsing;
// re-ingesting the same title replaces it wholesale.
type Document struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is a bounded span of lesson text prepared for embedding. Text carries
// the provenance prefix so the vector and any display keep course context.
type Chunk struct {
	Text         string `json:"text"`
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"`
	LessonLink   string `json:"lesson_link,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}
