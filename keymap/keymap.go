package keymap

// Win32 Default settings
var Win32Keymap = map[string]int32{
	// World
	"Move_W":    87, // W (Locked)
	"Move_A":    65, // A (Locked)
	"Move_S":    83, // S (Locked)
	"Move_D":    68, // D (Locked)
	"Sprint":    16, // Shift
	"Walk":      17, // Ctrl (Locked)
	"Interact":  70, // F
	"Technique": 69, // E
	"Attack":    1,  // Left Mouse Button (Locked)
	"Menu":      27, // Esc (Locked)
	"Map":       77, // M
	"Mission":   74, // J
	"Backpack":  66, // B
	"Character": 67, // C
	// Combat
	"AutoBattle":   86,             // V
	"BattleSpeed":  66,             // B
	"Skill":        69,             // E
	"Basic":        81,             // Q
	"Ultimate_1":   49,             // 1
	"Ultimate_2":   50,             // 2
	"Ultimate_3":   51,             // 3
	"Ultimate_4":   52,             // 4
	"SwitchTarget": unsupportedKey, // Drag the target bar instead (Locked)
	// Simulated Universe
	"Blessings": 84, // T
	"Curios":    89, // Y
	"Download":  70, // F (Followed "Interact")
}
