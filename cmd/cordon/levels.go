package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/cordon/internal/registry"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List roadblock variants and level tiers",
	Long:  `Shows the registered roadblock variants and the configured level table.`,
	Run:   runLevels,
}

func runLevels(cmd *cobra.Command, args []string) {
	variants := registry.List()

	fmt.Println("Available variants:")
	fmt.Println()

	maxNameLen := 4 // "Name" header
	for _, v := range variants {
		if len(v.Name) > maxNameLen {
			maxNameLen = len(v.Name)
		}
	}

	fmt.Printf("  %-*s  %s\n", maxNameLen, "Name", "Description")
	fmt.Printf("  %-*s  %s\n", maxNameLen, "----", "-----------")
	for _, v := range variants {
		fmt.Printf("  %-*s  %s\n", maxNameLen, v.Name, v.Description)
	}

	cfg := loadEngineConfig()

	fmt.Println()
	fmt.Println("Level tiers:")
	fmt.Println()
	fmt.Printf("  %-5s  %-10s  %-10s  %-4s  %-8s  %s\n", "Level", "Vehicle", "Cop", "Crew", "Barrier", "Light")
	fmt.Printf("  %-5s  %-10s  %-10s  %-4s  %-8s  %s\n", "-----", "-------", "---", "----", "-------", "-----")
	for _, lvl := range cfg.Levels {
		barrier := lvl.Barrier
		if barrier == "" {
			barrier = "-"
		}
		light := lvl.Light
		if light == "" {
			light = "-"
		}
		fmt.Printf("  %-5d  %-10s  %-10s  %-4d  %-8s  %s\n",
			lvl.Level, lvl.VehicleModel, lvl.CopModel, lvl.CopsPerVehicle, barrier, light)
	}

	fmt.Println()
	fmt.Println("Run 'cordon deploy --variant <name> --level <n>' to deploy one.")
}
