// Package wizard drives the interactive retention-policy setup:
// pick a dataset, build or change its rule set, store the result.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/raoulx24/zfs-autosnapd/internal/policy"
	"github.com/raoulx24/zfs-autosnapd/internal/zfs"
)

const (
	actionSetup  = "Set up a dataset for auto snapshotting"
	actionChange = "Change the auto snapshot settings for a dataset"
)

// Run walks the operator through configuring a dataset. With the sandbox
// store injected, the final zfs set is logged instead of applied.
func Run(ctx context.Context, store zfs.Store) error {
	datasets, err := store.Datasets(ctx)
	if err != nil {
		return err
	}
	unconfigured, err := store.Unconfigured(ctx)
	if err != nil {
		return err
	}

	var actions []string
	if len(unconfigured) > 0 {
		actions = append(actions, actionSetup)
	}
	if len(datasets) > 0 {
		actions = append(actions, actionChange)
	}
	if len(actions) == 0 {
		return errors.New("no datasets found; is a zpool imported?")
	}

	action := actions[0]
	if len(actions) > 1 {
		prompt := &survey.Select{Message: "What do you want to do?", Options: actions}
		if err := survey.AskOne(prompt, &action); err != nil {
			return err
		}
	}

	switch action {
	case actionSetup:
		return setupDataset(ctx, store, unconfigured)
	default:
		return changeDataset(ctx, store, datasets)
	}
}

func setupDataset(ctx context.Context, store zfs.Store, unconfigured []string) error {
	var dataset string
	prompt := &survey.Select{
		Message: "Which dataset do you wish to set up auto snapshotting for?",
		Options: unconfigured,
	}
	if err := survey.AskOne(prompt, &dataset); err != nil {
		return err
	}

	rules := []policy.Rule{}
	for {
		rule, err := askRule()
		if err != nil {
			return err
		}
		rules = append(rules, rule)

		more := false
		if err := survey.AskOne(&survey.Confirm{Message: "Add another rule?"}, &more); err != nil {
			return err
		}
		if !more {
			break
		}
	}

	p, err := policy.New(rules...)
	if err != nil {
		return err
	}
	return apply(ctx, store, dataset, p)
}

func changeDataset(ctx context.Context, store zfs.Store, datasets []zfs.Dataset) error {
	names := make([]string, len(datasets))
	byName := make(map[string]zfs.Dataset, len(datasets))
	for i, ds := range datasets {
		names[i] = ds.Name
		byName[ds.Name] = ds
	}

	var name string
	prompt := &survey.Select{
		Message: "Which dataset do you want to change?",
		Options: names,
	}
	if err := survey.AskOne(prompt, &name); err != nil {
		return err
	}
	ds := byName[name]

	const (
		addRule    = "Add another auto snapshot rule"
		removeRule = "Remove an auto snapshot rule"
	)
	var action string
	if err := survey.AskOne(&survey.Select{
		Message: fmt.Sprintf("Current policy is %q. What do you want to do?", ds.Policy.String()),
		Options: []string{addRule, removeRule},
	}, &action); err != nil {
		return err
	}

	rules := ds.Policy.Rules()
	switch action {
	case addRule:
		rule, err := askRule()
		if err != nil {
			return err
		}
		rules = append(rules, rule)

	case removeRule:
		if len(rules) == 1 {
			return errors.New("a policy needs at least one rule; set up the dataset again to replace it")
		}
		options := make([]string, len(rules))
		for i, r := range rules {
			options[i] = fmt.Sprintf("%s (%s)", r.String(), r.Describe())
		}
		var picked string
		if err := survey.AskOne(&survey.Select{
			Message: "Which rule should be removed?",
			Options: options,
		}, &picked); err != nil {
			return err
		}
		for i, option := range options {
			if option == picked {
				rules = append(rules[:i], rules[i+1:]...)
				break
			}
		}
	}

	p, err := policy.New(rules...)
	if err != nil {
		return err
	}
	return apply(ctx, store, name, p)
}

// askRule prompts for one rule token, validating it with the policy
// parser so the operator gets the real error message.
func askRule() (policy.Rule, error) {
	var token string
	prompt := &survey.Input{
		Message: "New rule (period, unit s|m|h|d|w|y, copies to keep; e.g. 15m8):",
	}
	validator := func(ans interface{}) error {
		s, _ := ans.(string)
		_, err := policy.ParseRule(s)
		return err
	}
	if err := survey.AskOne(prompt, &token, survey.WithValidator(validator)); err != nil {
		return policy.Rule{}, err
	}
	return policy.ParseRule(token)
}

func apply(ctx context.Context, store zfs.Store, dataset string, p policy.Policy) error {
	confirm := false
	if err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Store policy %q on %s?", p.String(), dataset),
		Default: true,
	}, &confirm); err != nil {
		return err
	}
	if !confirm {
		return nil
	}

	if err := store.SetPolicy(ctx, dataset, p); err != nil {
		return err
	}
	fmt.Printf("Stored policy %q on %s\n", p.String(), dataset)
	return nil
}
