package model

// Language is static reference data; the catalog is never mutated at runtime.
type Language struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Extension     string `json:"extension"`
	HighlightMode string `json:"highlight_mode"`
	Command       string `json:"command"`
	Template      string `json:"template"`
}

var languages = []Language{
	{
		ID: "c", Name: "C", Extension: "c", HighlightMode: "c", Command: "gcc",
		Template: "#include <stdio.h>\n\nint main() {\n    // Your code here\n    return 0;\n}",
	},
	{
		ID: "cpp", Name: "C++", Extension: "cpp", HighlightMode: "cpp", Command: "g++",
		Template: "#include <iostream>\nusing namespace std;\n\nint main() {\n    // Your code here\n    return 0;\n}",
	},
	{
		ID: "java", Name: "Java", Extension: "java", HighlightMode: "java", Command: "javac",
		Template: "import java.util.Scanner;\n\npublic class Main {\n    public static void main(String[] args) {\n        Scanner scanner = new Scanner(System.in);\n        // Your code here\n    }\n}",
	},
	{
		ID: "python", Name: "Python", Extension: "py", HighlightMode: "python", Command: "python",
		Template: "# Your code here\n",
	},
	{
		ID: "javascript", Name: "JavaScript", Extension: "js", HighlightMode: "javascript", Command: "node",
		Template: "// Your code here\n",
	},
	{
		ID: "csharp", Name: "C#", Extension: "cs", HighlightMode: "csharp", Command: "csc",
		Template: "using System;\n\nclass Program {\n    static void Main() {\n        // Your code here\n    }\n}",
	},
}

var languagesByID = func() map[string]Language {
	m := make(map[string]Language, len(languages))
	for _, l := range languages {
		m[l.ID] = l
	}
	return m
}()

// Languages returns a copy of the catalog in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

func LanguageByID(id string) (Language, bool) {
	l, ok := languagesByID[id]
	return l, ok
}

// DefaultTemplate is the starter code shown when no draft exists.
func DefaultTemplate(languageID string) string {
	return languagesByID[languageID].Template
}
