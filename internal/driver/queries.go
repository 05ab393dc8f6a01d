package driver

// SchemaQueries are idempotent and safe to run on every start.
var SchemaQueries = []string{
	"CREATE CONSTRAINT persona_id_unique IF NOT EXISTS FOR (p:PersonaAgent) REQUIRE p.persona_id IS UNIQUE",
	"CREATE CONSTRAINT persona_name_unique IF NOT EXISTS FOR (p:PersonaAgent) REQUIRE p.name IS UNIQUE",
	"CREATE CONSTRAINT goal_id_unique IF NOT EXISTS FOR (g:Goal) REQUIRE g.goal_id IS UNIQUE",
	"CREATE INDEX persona_attachment_style IF NOT EXISTS FOR (p:PersonaAgent) ON (p.attachment_style)",
	"CREATE INDEX goal_type IF NOT EXISTS FOR (g:Goal) ON (g.goal_type)",
	"CREATE INDEX relationship_type IF NOT EXISTS FOR ()-[r:RELATIONSHIP]-() ON (r.relationship_type)",
}

const (
	GetPersonaQuery = `
		MATCH (p:PersonaAgent {persona_id: $persona_id})
		RETURN p {.*} AS persona
	`

	ListPersonasQuery = `
		MATCH (p:PersonaAgent)
		RETURN p {.*} AS persona
		ORDER BY p.name, p.persona_id
	`

	SavePersonaQuery = `
		MERGE (p:PersonaAgent {persona_id: $persona_id})
		ON CREATE SET p.created_at = $now
		SET p.name = $name,
			p.age = $age,
			p.role = $role,
			p.description = $description,
			p.attachment_style = $attachment_style,
			p.openness = $openness,
			p.conscientiousness = $conscientiousness,
			p.extraversion = $extraversion,
			p.agreeableness = $agreeableness,
			p.neuroticism = $neuroticism,
			p.communication_style = $communication_style,
			p.updated_at = $now
		RETURN p.persona_id AS persona_id
	`

	// Relationships are stored with one direction and matched in either.
	// Every relationship query projects the same columns.
	GetRelationshipQuery = `
		MATCH (p1:PersonaAgent)-[r:RELATIONSHIP]->(p2:PersonaAgent)
		WHERE (p1.persona_id = $persona1_id AND p2.persona_id = $persona2_id)
		   OR (p1.persona_id = $persona2_id AND p2.persona_id = $persona1_id)
		RETURN p1.persona_id AS persona1_id, p1.name AS persona1_name,
			p2.persona_id AS persona2_id, p2.name AS persona2_name,
			r {.*} AS rel
		LIMIT 1
	`

	ListRelationshipsQuery = `
		MATCH (p1:PersonaAgent)-[r:RELATIONSHIP]->(p2:PersonaAgent)
		RETURN p1.persona_id AS persona1_id, p1.name AS persona1_name,
			p2.persona_id AS persona2_id, p2.name AS persona2_name,
			r {.*} AS rel
		ORDER BY coalesce(r.relationship_strength, 5.0) DESC, p1.persona_id, p2.persona_id
	`

	ListRecentlyActiveQuery = `
		MATCH (p1:PersonaAgent)-[r:RELATIONSHIP]->(p2:PersonaAgent)
		RETURN p1.persona_id AS persona1_id, p1.name AS persona1_name,
			p2.persona_id AS persona2_id, p2.name AS persona2_name,
			r {.*} AS rel
		ORDER BY r.updated_at DESC, p1.persona_id, p2.persona_id
		LIMIT $limit
	`

	// The leading SET takes the relationship write lock so the reads below
	// see the latest committed values; updated_at never moves backwards.
	// The replaced values are returned alongside the new ones.
	ApplyBoundedDeltaQuery = `
		MATCH (p1:PersonaAgent)-[r:RELATIONSHIP]->(p2:PersonaAgent)
		WHERE (p1.persona_id = $persona1_id AND p2.persona_id = $persona2_id)
		   OR (p1.persona_id = $persona2_id AND p2.persona_id = $persona1_id)
		WITH p1, r, p2 LIMIT 1
		SET r._lock = true
		REMOVE r._lock
		SET r.updated_at = CASE WHEN r.updated_at > $now THEN r.updated_at ELSE $now END
		WITH p1, r, p2,
			coalesce(r.trust_level, 5.0) AS prev_trust,
			coalesce(r.intimacy_level, 5.0) AS prev_intimacy,
			coalesce(r.relationship_strength, 5.0) AS prev_strength
		WITH p1, r, p2, prev_trust, prev_intimacy, prev_strength,
			prev_trust + $trust_delta AS trust,
			prev_intimacy + $intimacy_delta AS intimacy,
			prev_strength + $strength_delta AS strength
		SET r.trust_level = CASE WHEN trust < 0.0 THEN 0.0 WHEN trust > 10.0 THEN 10.0 ELSE trust END,
			r.intimacy_level = CASE WHEN intimacy < 0.0 THEN 0.0 WHEN intimacy > 10.0 THEN 10.0 ELSE intimacy END,
			r.relationship_strength = CASE WHEN strength < 0.0 THEN 0.0 WHEN strength > 10.0 THEN 10.0 ELSE strength END
		RETURN p1.persona_id AS persona1_id, p1.name AS persona1_name,
			p2.persona_id AS persona2_id, p2.name AS persona2_name,
			r {.*} AS rel,
			prev_trust, prev_intimacy, prev_strength
	`

	RecordInteractionEffectQuery = `
		MATCH (p1:PersonaAgent)-[r:RELATIONSHIP]->(p2:PersonaAgent)
		WHERE (p1.persona_id = $persona1_id AND p2.persona_id = $persona2_id)
		   OR (p1.persona_id = $persona2_id AND p2.persona_id = $persona1_id)
		WITH p1, r, p2 LIMIT 1
		SET r._lock = true
		REMOVE r._lock
		SET r.updated_at = CASE WHEN r.updated_at > $now THEN r.updated_at ELSE $now END
		WITH p1, r, p2, ($valence + coalesce(r.emotional_valence, 0.0)) / 2.0 AS valence
		SET r.emotional_valence = CASE WHEN valence < -1.0 THEN -1.0 WHEN valence > 1.0 THEN 1.0 ELSE valence END,
			r.interaction_count = coalesce(r.interaction_count, 0) + 1,
			r.last_interaction = $now
		RETURN p1.persona_id AS persona1_id, p1.name AS persona1_name,
			p2.persona_id AS persona2_id, p2.name AS persona2_name,
			r {.*} AS rel
	`

	// EnsureRelationshipQuery creates the edge only when neither direction
	// exists. The persona nodes are locked first so two concurrent calls for
	// the same pair cannot both create it.
	EnsureRelationshipQuery = `
		MATCH (a:PersonaAgent {persona_id: $persona1_id}), (b:PersonaAgent {persona_id: $persona2_id})
		SET a._lock = true, b._lock = true
		REMOVE a._lock, b._lock
		WITH a, b
		OPTIONAL MATCH (a)-[existing:RELATIONSHIP]-(b)
		WITH a, b, count(existing) = 0 AS missing
		FOREACH (_ IN CASE WHEN missing THEN [1] ELSE [] END |
			CREATE (a)-[:RELATIONSHIP {
				trust_level: $trust_level,
				intimacy_level: $intimacy_level,
				relationship_strength: $relationship_strength,
				interaction_count: 0,
				emotional_valence: $emotional_valence,
				relationship_type: $relationship_type,
				created_at: $now,
				updated_at: $now
			}]->(b)
		)
		RETURN missing AS created
	`

	ListGoalsQuery = `
		MATCH (p:PersonaAgent)-[:HAS_GOAL]->(g:Goal)
		WHERE $persona_id = '' OR p.persona_id = $persona_id
		RETURN g {.*, persona_id: p.persona_id} AS goal
		ORDER BY p.persona_id, g.description
	`

	// AdvanceGoalsQuery applies a whole batch in one statement. When any
	// persona is missing the second UNWIND is empty and nothing is written.
	AdvanceGoalsQuery = `
		UNWIND $goals AS adv
		OPTIONAL MATCH (p:PersonaAgent {persona_id: adv.persona_id})
		WITH collect({adv: adv, p: p}) AS rows
		WITH rows, size([row IN rows WHERE row.p IS NULL]) AS missing
		UNWIND CASE WHEN missing = 0 THEN rows ELSE [] END AS row
		WITH row.adv AS adv, row.p AS p
		MERGE (p)-[:HAS_GOAL]->(g:Goal {description: adv.description})
		ON CREATE SET g.goal_id = adv.goal_id, g.progress = 0.0
		WITH adv, p, g, coalesce(g.progress, 0.0) + adv.increment AS progress
		SET g.progress = CASE WHEN progress < 0.0 THEN 0.0 WHEN progress > 1.0 THEN 1.0 ELSE progress END,
			g.goal_type = adv.goal_type,
			g.strategies = adv.strategies,
			g.updated_at = adv.at
		RETURN g {.*, persona_id: p.persona_id} AS goal
	`
)
