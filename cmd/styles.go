package cmd

import "github.com/charmbracelet/lipgloss"

var headerText = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
var whiteText = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
var grayText = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

var redIcon = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).PaddingRight(1)
var greenIcon = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).PaddingRight(1)
