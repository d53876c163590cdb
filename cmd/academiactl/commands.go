package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/academia-api/internal/app"
	"github.com/noah-isme/academia-api/internal/dto"
	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/service"
	"github.com/noah-isme/academia-api/internal/validation"
)

// seedFile is the YAML layout accepted by seed-modalities:
//
//	modalities:
//	  - Pilates
//	  - Yoga
type seedFile struct {
	Modalities []string `yaml:"modalities"`
}

func newSeedModalitiesCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed-modalities",
		Short: "Create the modalities listed in a YAML file that do not exist yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := loadSeedFile(path)
			if err != nil {
				return err
			}
			return withContainer(func(c *app.Container) error {
				created, err := c.Modalities.Ensure(cmd.Context(), names)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d modalities created, %d already present\n", created, len(names)-created)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "modalities.yaml", "YAML file listing modality names")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	var req service.RegisterUserRequest
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account allowed to log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(func(c *app.Container) error {
				user, err := c.Auth.Register(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (8 to 72 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Print unpaid payments due today or earlier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(func(c *app.Container) error {
				list, _, err := c.Payments.Overdue(cmd.Context())
				if err != nil {
					return err
				}
				return printPayments(cmd.OutOrStdout(), list)
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print payments newest first, optionally within an inclusive date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseRange(from, to)
			if err != nil {
				return err
			}
			return withContainer(func(c *app.Container) error {
				list, _, err := c.Payments.History(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printPayments(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	return cmd
}

func loadSeedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]string, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.Modalities) == 0 {
		return nil, fmt.Errorf("seed file lists no modalities")
	}
	return file.Modalities, nil
}

func parseRange(from, to string) (models.PaymentHistoryFilter, error) {
	var filter models.PaymentHistoryFilter
	var err error
	if filter.From, err = validation.ParseOptionalDate("from", from); err != nil {
		return filter, err
	}
	if filter.To, err = validation.ParseOptionalDate("to", to); err != nil {
		return filter, err
	}
	return filter, validation.ValidateDateRange(filter.From, filter.To)
}

func printPayments(w io.Writer, list *dto.PaymentList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tAMOUNT\tPAID ON\tDUE\tMETHOD\tSTATUS\tDAYS OVERDUE")
	for _, item := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			item.StudentName,
			item.Amount.StringFixed(2),
			item.PaymentDate.Format(models.DateLayout),
			item.DueDate.Format(models.DateLayout),
			item.Method,
			item.Status,
			item.DaysOverdue,
		)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\t\t\t\t\n", list.Total.StringFixed(2))
	return tw.Flush()
}
