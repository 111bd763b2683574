package models

// QuestionCount and OptionCount are fixed by the quiz contract given to the model.
const (
	QuestionCount = 10
	OptionCount   = 4
)

// QuizDocument is the validated quiz. Field order here is the canonical JSON order.
type QuizDocument struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}
