package shared

import "github.com/charmbracelet/lipgloss"

// RenderTwoColumnLayout joins two columns split 60/40, aligned at the top.
func RenderTwoColumnLayout(leftContent, rightContent string, width int) string {
	const leftShare = 0.6

	leftWidth := int(float64(width) * leftShare)
	rightWidth := width - leftWidth

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(leftWidth).Render(leftContent),
		lipgloss.NewStyle().Width(rightWidth).Render(rightContent),
	)
}

// RenderWidgetBox renders content under a bold title inside a bordered box.
func RenderWidgetBox(title, content string, width int) string {
	const widthOverhead = 4 // borders and padding

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor())

	return BoxStyle().Width(width - widthOverhead).Render(titleStyle.Render(title) + "\n" + content)
}
