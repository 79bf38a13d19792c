package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
		wantErr  bool
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Operators",
			input: "+ - * / % ! && || = == != < > <= >=",
			expected: []Token{
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: NOT, Lexeme: "!", Line: 1},
				{Type: AND_LOGICAL, Lexeme: "&&", Line: 1},
				{Type: OR_LOGICAL, Lexeme: "||", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: EQUALS, Lexeme: "==", Line: 1},
				{Type: NOT_EQ, Lexeme: "!=", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Punctuation",
			input: "{ } ( ) ; ,",
			expected: []Token{
				{Type: LBRACE, Lexeme: "{", Line: 1},
				{Type: RBRACE, Lexeme: "}", Line: 1},
				{Type: LPAREN, Lexeme: "(", Line: 1},
				{Type: RPAREN, Lexeme: ")", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords and Identifiers",
			input: "int const return main _tmp1 integer",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: CONST, Lexeme: "const", Line: 1},
				{Type: RETURN, Lexeme: "return", Line: 1},
				{Type: IDENTIFIER, Lexeme: "main", Line: 1},
				{Type: IDENTIFIER, Lexeme: "_tmp1", Line: 1},
				{Type: IDENTIFIER, Lexeme: "integer", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Integers",
			input: "0 42 0x1F 017",
			expected: []Token{
				{Type: INTEGER, Lexeme: "0", Line: 1},
				{Type: INTEGER, Lexeme: "42", Line: 1},
				{Type: INTEGER, Lexeme: "0x1F", Line: 1},
				{Type: INTEGER, Lexeme: "017", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Comments and Lines",
			input: "int // line comment\n/* block\ncomment */ x",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 3},
				{Type: EOF, Lexeme: "", Line: 3},
			},
		},
		{name: "Unterminated comment", input: "/* never closed", wantErr: true},
		{name: "Single ampersand", input: "a & b", wantErr: true},
		{name: "Single bar", input: "a | b", wantErr: true},
		{name: "Empty hex", input: "0x", wantErr: true},
		{name: "Identifier suffix", input: "12abc", wantErr: true},
		{name: "Unknown character", input: "int $", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var se *SyntaxError
				if !errors.As(err, &se) {
					t.Errorf("expected *SyntaxError, got %T", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lex() =\n%v\nwant\n%v", got, tt.expected)
			}
		})
	}
}
