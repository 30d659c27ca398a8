package electionController

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/apperrors"
	"server/internal/logger"
	. "server/internal/models"
	"server/internal/repositories"
)

type ElectionController struct {
	electionRepo repositories.ElectionRepository
	log          logger.Logger
}

func New(electionRepo repositories.ElectionRepository) *ElectionController {
	return &ElectionController{
		electionRepo: electionRepo,
		log:          logger.New("ElectionController"),
	}
}

// CreateElection parses and validates the uploaded definition document and
// creates the election under the admin's organization. The definition is
// immutable afterwards.
func (c *ElectionController) CreateElection(ctx context.Context, organizationID string, definitionJSON []byte) (*Election, error) {
	log := c.log.Function("CreateElection")

	var definition ElectionDefinition
	if err := json.Unmarshal(definitionJSON, &definition); err != nil {
		return nil, apperrors.BadRequest("election definition is not valid JSON: %v", err)
	}

	if err := validateDefinition(&definition); err != nil {
		return nil, err
	}

	election := &Election{
		OrganizationID: organizationID,
		Definition:     definition,
	}
	if err := c.electionRepo.Create(ctx, election); err != nil {
		return nil, log.Err("failed to create election", err, "organizationID", organizationID)
	}

	return election, nil
}

func (c *ElectionController) GetElections(ctx context.Context, organizationID string) ([]*Election, error) {
	elections, err := c.electionRepo.GetAllForOrganization(ctx, organizationID)
	if err != nil {
		return nil, c.log.Function("GetElections").
			Err("failed to get elections", err, "organizationID", organizationID)
	}

	return elections, nil
}

func (c *ElectionController) GetElection(ctx context.Context, organizationID, electionID string) (*Election, error) {
	election, err := c.electionRepo.GetForOrganization(ctx, organizationID, electionID)
	if err != nil {
		return nil, err
	}
	if election == nil {
		return nil, apperrors.NotFound("election %s not found", electionID)
	}

	return election, nil
}

// DeleteElection removes the election and all of its voters.
func (c *ElectionController) DeleteElection(ctx context.Context, organizationID, electionID string) error {
	log := c.log.Function("DeleteElection")

	election, err := c.GetElection(ctx, organizationID, electionID)
	if err != nil {
		return err
	}

	if err := c.electionRepo.Delete(ctx, organizationID, election.ID); err != nil {
		// A concurrent delete between the lookup and here is still a 404.
		if apperrors.IsNotFound(err) {
			return err
		}
		return log.Err("failed to delete election", err, "electionID", electionID)
	}

	return nil
}

func validateDefinition(definition *ElectionDefinition) error {
	if len(definition.Precincts) == 0 {
		return apperrors.BadRequest("election definition has no precincts")
	}
	if len(definition.BallotStyles) == 0 {
		return apperrors.BadRequest("election definition has no ballot styles")
	}

	var problems []string
	precinctIDs := make(map[string]bool, len(definition.Precincts))
	for _, precinct := range definition.Precincts {
		if precinct.ID == "" {
			problems = append(problems, "precinct with empty id")
			continue
		}
		if precinctIDs[precinct.ID] {
			problems = append(problems, fmt.Sprintf("duplicate precinct id %q", precinct.ID))
		}
		precinctIDs[precinct.ID] = true
	}

	styleIDs := make(map[string]bool, len(definition.BallotStyles))
	for _, style := range definition.BallotStyles {
		if style.ID == "" {
			problems = append(problems, "ballot style with empty id")
			continue
		}
		if styleIDs[style.ID] {
			problems = append(problems, fmt.Sprintf("duplicate ballot style id %q", style.ID))
		}
		styleIDs[style.ID] = true

		for _, precinctID := range style.Precincts {
			if !precinctIDs[precinctID] {
				problems = append(problems,
					fmt.Sprintf("ballot style %q references unknown precinct %q", style.ID, precinctID))
			}
		}
	}

	if len(problems) > 0 {
		return apperrors.BadRequest("invalid election definition: %s", joinProblems(problems))
	}
	return nil
}

func joinProblems(problems []string) string {
	out := problems[0]
	for _, problem := range problems[1:] {
		out += "; " + problem
	}
	return out
}
