// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the quota-vote API.

# Route Registration

NewDeps builds the campaign service and vote coordinator, and NewRouter
registers every endpoint on an http.ServeMux:

	deps, err := router.NewDeps(store, hub, nil, cfg)
	mux := router.NewRouter(deps)

# Endpoints

Health:

	GET /health

Campaign administration (admin session):

	POST   /admin/campaigns                            - Create campaign
	PUT    /admin/campaigns/{id}                       - Edit title, description, end time
	DELETE /admin/campaigns/{id}                       - Delete campaign (no votes)
	POST   /admin/campaigns/{id}/candidates            - Add candidate
	PUT    /admin/campaigns/{id}/candidates/{candidateId} - Rename candidate (no votes)
	DELETE /admin/campaigns/{id}/candidates/{candidateId} - Remove candidate
	GET    /admin/campaigns/{id}/electors              - Quota used per active elector
	POST   /admin/campaigns/{id}/enable                - Open for voting
	POST   /admin/campaigns/{id}/close                 - Stop voting
	POST   /admin/campaigns/{id}/reopen                - Resume voting

Elector administration (admin session):

	POST /admin/electors              - Register elector
	GET  /admin/electors              - All electors
	GET  /admin/electors/{id}         - Elector details
	PUT  /admin/electors/{id}/active  - Activate or deactivate
	POST /admin/electors/{id}/session - Issue elector session token

Public reads:

	GET /campaigns      - All campaigns with tallies
	GET /campaigns/{id} - One campaign with tallies

Voting (elector session):

	POST /votes                        - Cast one vote
	GET  /votes/remaining/{campaignId} - Remaining quota

Live tallies:

	GET /ws       - Websocket (admin or elector session)
	GET /ws/stats - Subscriber counts (admin session)

Sessions are passed as "Authorization: Bearer <token>"; the websocket
also accepts a token query parameter.
*/
package router
