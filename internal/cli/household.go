package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
	authz "lifeplan/internal/service/auth"
	"lifeplan/internal/service/households"
)

// HouseholdCmd groups household administration
func HouseholdCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Manage households and memberships",
	}
	cmd.PersistentFlags().String("actor", "", "User id the operation runs as")
	cmd.PersistentFlags().String("actor-email", "", "Account email the operation runs as (resolved via Supabase)")

	cmd.AddCommand(householdCreateCmd(env))
	cmd.AddCommand(householdAddMemberCmd(env))
	cmd.AddCommand(householdMembersCmd(env))
	return cmd
}

// withHouseholds opens storage and runs fn with the household service
func withHouseholds(cmd *cobra.Command, env *Env, fn func(svc services.HouseholdService) error) error {
	storage, err := env.openStorage(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer storage.Close()

	authorizer := authz.NewMembershipAuthorizer(storage.Households)
	return fn(households.NewService(storage.Households, storage.TxManager, authorizer, env.Logger))
}

// resolveUser picks the id flag, or looks the email flag up in the user directory
func resolveUser(cmd *cobra.Command, env *Env, idFlag, emailFlag string) (string, error) {
	id, _ := cmd.Flags().GetString(idFlag)
	email, _ := cmd.Flags().GetString(emailFlag)

	switch {
	case id != "" && email != "":
		return "", fmt.Errorf("use either --%s or --%s", idFlag, emailFlag)
	case id != "":
		return id, nil
	case email != "":
		users, err := env.users()
		if err != nil {
			return "", err
		}
		id, err := users.FindUserIDByEmail(cmd.Context(), email)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", email, err)
		}
		return id, nil
	}
	return "", fmt.Errorf("--%s or --%s is required", idFlag, emailFlag)
}

func householdCreateCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a household with the actor as admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := resolveUser(cmd, env, "actor", "actor-email")
			if err != nil {
				return err
			}
			displayName, _ := cmd.Flags().GetString("display-name")

			return withHouseholds(cmd, env, func(svc services.HouseholdService) error {
				h, err := svc.Create(cmd.Context(), actorID, &services.CreateHouseholdRequest{
					Name:        args[0],
					DisplayName: displayName,
				})
				if err != nil {
					return fmt.Errorf("failed to create household: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Created household %s: %s\n", okMark, h.ID, h.Name)
				fmt.Fprintf(out, "  Admin: %s\n", h.AdminUserID)
				return nil
			})
		},
	}
	cmd.Flags().String("display-name", "", "Admin's display name inside the household")
	return cmd
}

func householdAddMemberCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-member [household-id]",
		Short: "Add a member or change a membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := resolveUser(cmd, env, "actor", "actor-email")
			if err != nil {
				return err
			}
			userID, err := resolveUser(cmd, env, "user", "email")
			if err != nil {
				return err
			}
			displayName, _ := cmd.Flags().GetString("display-name")
			role, _ := cmd.Flags().GetString("role")
			status, _ := cmd.Flags().GetString("status")

			return withHouseholds(cmd, env, func(svc services.HouseholdService) error {
				m, err := svc.AddMember(cmd.Context(), actorID, args[0], &services.AddMemberRequest{
					UserID:      userID,
					DisplayName: displayName,
					Role:        models.MemberRole(role),
					Status:      models.MemberStatus(status),
				})
				if err != nil {
					return fmt.Errorf("failed to add member: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is %s (%s) in household %s\n",
					okMark, m.UserID, m.Role, m.Status, m.HouseholdID)
				return nil
			})
		},
	}
	cmd.Flags().String("user", "", "User id to add")
	cmd.Flags().String("email", "", "Account email to add (resolved via Supabase)")
	cmd.Flags().String("display-name", "", "Member's display name inside the household")
	cmd.Flags().String("role", "", "Membership role: admin or member (default member)")
	cmd.Flags().String("status", "", "Membership status: active, invited or removed (default active)")
	return cmd
}

func householdMembersCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "members [household-id]",
		Short: "List household members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := resolveUser(cmd, env, "actor", "actor-email")
			if err != nil {
				return err
			}

			return withHouseholds(cmd, env, func(svc services.HouseholdService) error {
				members, err := svc.ListMembers(cmd.Context(), actorID, args[0])
				if err != nil {
					return fmt.Errorf("failed to list members: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "USER\tNAME\tROLE\tSTATUS")
				for _, m := range members {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.UserID, m.DisplayName, m.Role, m.Status)
				}
				return w.Flush()
			})
		},
	}
}
