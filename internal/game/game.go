// Package game defines the catalog of browser mini-games the arcade tracks
// scores and progress for.
package game

// Game identifiers.
const (
	Snake     = "snake"
	Tetris    = "tetris"
	Flappy    = "flappy"
	Breakout  = "breakout"
	Runner    = "runner"
	Memory    = "memory"
	Quiz      = "quiz"
	TicTacToe = "tictactoe"
)

// Info describes one mini-game.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// HasSkins marks games with a skin family in the shop.
	HasSkins bool `json:"hasSkins"`
}

// builtin lists the mini-games in display order.
var builtin = []Info{
	{ID: Snake, Name: "Snake", Description: "Eat, grow and avoid your own tail", HasSkins: true},
	{ID: Tetris, Name: "Tetris", Description: "Clear lines with falling blocks", HasSkins: true},
	{ID: Flappy, Name: "Flappy Bird", Description: "Flap through the gaps between pipes", HasSkins: true},
	{ID: Breakout, Name: "Breakout", Description: "Bounce the ball and break every brick"},
	{ID: Runner, Name: "Runner", Description: "Jump over obstacles for as long as you can", HasSkins: true},
	{ID: Memory, Name: "Memory", Description: "Find all matching card pairs", HasSkins: true},
	{ID: Quiz, Name: "Quiz", Description: "Answer questions against the clock"},
	{ID: TicTacToe, Name: "Tic-Tac-Toe", Description: "Get three in a row before the computer does"},
}
