package ai

// ExtractPrompt is the system prompt for entity/relationship extraction from
// a chunk of document text. Expects one %s argument: the comma-separated
// list of allowed entity types (used twice).
const ExtractPrompt = `
# Task Context
You are an assistant that extracts entities and relationships from a text
document for a knowledge graph.

# Detailed Task Description & Rules
- Identify every named entity in the text whose type is one of: [%s].
- Entity names are written exactly as they appear in the text, with all
  letters of the name capitalized.
- Identify directed relationships between the entities found in step 1.
- A relationship must connect two entities that were both identified in the
  text; never invent an endpoint.
- Relationship types are short UPPER_SNAKE_CASE verbs, e.g. KNOWS, WORKS_FOR,
  LIVES_IN, PART_OF.
- Do not extract relationships whose endpoints are not in the entity list.

# Thinking Step by Step
1. Read the whole text once.
2. List the entities and assign each a type from [%s].
3. For each pair of entities that the text explicitly connects, emit one
   relationship with a type and a short supporting statement.

# Output Formatting
Return a JSON object matching the provided schema.
`

// InferRelationsPrompt is the system prompt for LLM-assisted relationship
// inference over fused retrieval context. The model only sees text that was
// already retrieved; it proposes relationships with a confidence score and
// the caller decides what to keep.
const InferRelationsPrompt = `
# Task Context
You are an assistant that proposes additional relationships between entities
mentioned in retrieved context text.

# Detailed Task Description & Rules
- Only use entities that are explicitly mentioned in the text.
- Source and target of a relationship are entity names as written in the text.
- Relationship types are short UPPER_SNAKE_CASE verbs.
- Assign each relationship a confidence between 0 and 1 reflecting how
  directly the text supports it. Use low confidence for relationships that
  are only implied.
- Prefer few well-supported relationships over many speculative ones.

# Output Formatting
Return a JSON object matching the provided schema.
`

// AnswerPrompt frames a retrieval-augmented answer. Expects two %s
// arguments: the context block and the user question.
const AnswerPrompt = `
# Task Context
You are an assistant answering a question using only the provided context.

# Background Data
%s

# Detailed Task Description & Rules
- Answer strictly from the context above; do not use outside knowledge.
- If the context does not contain the answer, say so instead of guessing.
- Be concise and factual.

# Immediate Task Description or Request
%s
`

// SynthesisPrompt combines the answers of completed reasoning steps into one
// final answer. Expects two %s arguments: the original question and the
// per-step findings block.
const SynthesisPrompt = `
# Task Context
You are an assistant synthesizing a final answer from the findings of a
multi-step analysis.

# Background Data
Question: %s

Findings:
%s

# Detailed Task Description & Rules
- Combine the findings into one coherent answer to the question.
- Resolve contradictions in favor of the more specific finding.
- Do not introduce information that is absent from the findings.
`
