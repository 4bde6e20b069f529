package template

// Default prompt templates for the four external calls of a session.
// They use {{variable}} placeholders for dynamic content injection.

// StructureTemplate asks the structurer to restate the raw request.
const StructureTemplate = `Tu es un assistant expert en analyse de demandes. 
Analyse et structure cette demande utilisateur de manière claire et précise:

Demande: {{request}}

Fournis une analyse structurée avec:
1. Objectif principal
2. Contraintes techniques éventuelles
3. Critères de succès
4. Technologies suggérées (si applicable)

Sois concis et précis.{{extra}}`

// ProposeTemplate asks the proposer for a solution, given the recent rounds.
const ProposeTemplate = `Tu es {{proposer}}, un expert en développement. 
Voici une demande structurée:

{{structured}}

{{context}}

Propose une solution technique détaillée. 
Sois spécifique sur l'implémentation, l'architecture et les bonnes pratiques.
Si c'est un nouveau round, tiens compte des retours de {{reviewer}}.`

// ReviewTemplate asks the reviewer to critique the latest proposal.
const ReviewTemplate = `Tu es {{reviewer}}, un expert en développement. 
Voici la demande originale:

{{structured}}

{{proposer}} propose cette solution:

{{proposal}}

Analyse cette proposition:
1. Points forts
2. Points d'amélioration potentiels
3. Alternatives ou optimisations

Si tu es d'accord avec l'approche, indique clairement "CONSENSUS" ou "D'ACCORD".
Sinon, propose des améliorations constructives.`

// ImplementTemplate asks the chosen implementer for the final artifact.
const ImplementTemplate = `Tu es {{implementer}}, choisi pour implémenter la solution finale.

Demande originale:
{{structured}}

Contexte du débat:
{{context}}

Implémente maintenant la solution complète avec:
1. Code complet et fonctionnel
2. Documentation inline
3. Instructions d'utilisation
4. Tests si applicable

Fournis une implémentation production-ready.`
