package service

import (
	"fmt"
	"strings"

	"github.com/castlemilk/pocketai/internal/store"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ScanPrompt is sent alongside every food photo.
const ScanPrompt = "Is the food in this image vegan? Be detailed and explain why or why not. " +
	"Please analyze all visible ingredients and provide your confidence level as a percentage at the end of your response."

var titleCaser = cases.Title(language.English)

func label(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// buildMediationPrompt asks for a response ending with the fairness score
// line and the bulleted action item section that MediationDirectives read.
func buildMediationPrompt(s *store.Session) string {
	var b strings.Builder
	b.WriteString("You are an impartial, empathetic conflict mediator helping people resolve a disagreement.\n\n")
	fmt.Fprintf(&b, "Relationship: %s\n", label(s.RelationshipContext))
	fmt.Fprintf(&b, "Conflict category: %s\n\n", label(s.ArgumentCategory))

	b.WriteString("Participants:\n")
	for i, p := range s.Participants {
		if p.Role != "" {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, p.Name, p.Role)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		}
		fmt.Fprintf(&b, "   Perspective: %q\n", p.Perspective)
	}

	b.WriteString("\nPlease:\n")
	b.WriteString("- Summarize each perspective fairly and without taking sides.\n")
	b.WriteString("- Identify the common ground and the underlying needs of each person.\n")
	b.WriteString("- Propose a balanced compromise everyone can accept.\n\n")
	b.WriteString("End your response with exactly these two sections:\n")
	b.WriteString("FAIRNESS SCORE: <a number from 1 to 10 rating how balanced the proposed resolution is>\n")
	b.WriteString("ACTION ITEMS:\n")
	b.WriteString("• <one concrete next step>\n")
	b.WriteString("• <another concrete next step>\n")
	b.WriteString("Put each action item on its own line starting with the • character.\n")
	return b.String()
}
