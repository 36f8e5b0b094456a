package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

// GetTargetFromUser prompts for the 4-byte target selector until a valid
// one is entered.
func GetTargetFromUser() selector.Selector {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("    %s🎯 TARGET SELECTOR%s\n", ColorPurple+ColorBold, ColorReset)
	for {
		fmt.Printf("    %sSelector%s (0x + 8 hex): ", ColorCyan, ColorReset)
		input, _ := reader.ReadString('\n')
		target, err := selector.Parse(strings.TrimSpace(input))
		if err != nil {
			fmt.Printf("    %s⚠ Invalid! e.g. 0xa9059cbb%s\n", ColorRed, ColorReset)
			continue
		}
		return target
	}
}

// GetSignatureShapeFromUser prompts for the fixed prefix and the
// comma-joined input-type list of the signature to mine.
func GetSignatureShapeFromUser() (string, string) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("\n    %s✍  SIGNATURE SHAPE%s\n", ColorPurple+ColorBold, ColorReset)

	fmt.Printf("    %sPrefix%s (may be empty): ", ColorCyan, ColorReset)
	prefixInput, _ := reader.ReadString('\n')
	prefix := strings.TrimSpace(prefixInput)

	var inputTypes string
	for {
		fmt.Printf("    %sInput types%s (comma-joined, e.g. address,uint256): ", ColorCyan, ColorReset)
		typesInput, _ := reader.ReadString('\n')
		inputTypes = strings.TrimSpace(typesInput)
		if err := selector.ValidateInputTypes(inputTypes); err != nil {
			fmt.Printf("    %s⚠ %v%s\n", ColorRed, err, ColorReset)
			continue
		}
		break
	}

	return prefix, inputTypes
}

// AskToContinue prompts the user to mine another selector or exit.
func AskToContinue() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n    %s[Enter]%s Mine another selector  │  %s[Q]%s Exit\n", ColorGreen, ColorReset, ColorRed, ColorReset)
	fmt.Printf("    %s→%s ", ColorCyan, ColorReset)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input != "q" && input != "quit" && input != "exit"
}

// WaitForExit waits for the user to press Enter before exiting.
func WaitForExit() {
	fmt.Printf("\n    %sPress Enter to exit...%s", ColorDim, ColorReset)
	var input string
	fmt.Scanln(&input)
}
