package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/services/users"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

// demoPassword is shared by every seeded account
const demoPassword = "demo-csps-2025"

var demoUsers = []users.UserInput{
	{Username: "admin", Email: "admin@csps.demo", FirstName: "Claire", LastName: "Martin", Role: models.RoleAdmin},
	{Username: "jdurand", Email: "jdurand@csps.demo", FirstName: "Julien", LastName: "Durand", Phone: "06 11 22 33 44", Role: models.RoleCoordinator},
	{Username: "sleroy", Email: "sleroy@csps.demo", FirstName: "Sophie", LastName: "Leroy", Phone: "06 55 66 77 88", Role: models.RoleCoordinator},
}

var demoMissions = []missions.MissionInput{
	{Title: "Réhabilitation école Jean Moulin", Client: "Ville de Lyon", Address: "14 rue Jean Moulin, 69003 Lyon", Date: "2025-03-03", Time: "08:30", Type: "CSPS", ContactLastName: "Bernard", ContactEmail: "travaux@lyon.demo"},
	{Title: "Extension entrepôt logistique", Client: "LogiSud", Address: "ZI des Platanes, 13127 Vitrolles", Date: "2025-03-05", Time: "10:00", Type: "CSPS", RefClient: "LS-2025-017"},
	{Title: "Audit échafaudages", Client: "Bâtir Ensemble", Address: "2 quai de la Loire, 44000 Nantes", Date: "2025-03-10", Time: "14:00", Type: "AEU"},
}

// seedCmd creates demo accounts and missions on an empty database
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts and missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				return seed(ctx, cfg, db)
			})
		},
	}
}

func seed(ctx context.Context, cfg *config.Config, db *database.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.UserAuth{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		color.Yellow("⚠️  Database already has %d users, nothing seeded", count)
		return nil
	}

	userSvc := users.NewService(db, cfg)
	var created []*models.UserAuth
	for _, in := range demoUsers {
		in.Password = demoPassword
		user, err := userSvc.Create(ctx, nil, in)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", in.Username, err)
		}
		created = append(created, user)
	}
	admin := workflow.Actor{ID: created[0].ID, Role: created[0].Role}

	missionSvc := missions.NewService(db, nil, cfg)
	for i, in := range demoMissions {
		mission, err := missionSvc.Create(ctx, admin, in)
		if err != nil {
			return fmt.Errorf("seed mission %q: %w", in.Title, err)
		}
		coord := created[1+i%2]
		if _, err := missionSvc.AssignUsers(ctx, admin, mission.ID, []string{coord.ID}); err != nil {
			return fmt.Errorf("assign mission %q: %w", in.Title, err)
		}
	}

	color.Green("✓ Seeded %d users and %d missions (password %q)", len(created), len(demoMissions), demoPassword)
	return nil
}
