package prompt

const fence = "```"

// MessageHandler drives the main reply. The model answers as the agent with a
// single JSON object naming the speaker, the text, and one action.
const MessageHandler = `{{providers}}

# Actors in the scene
{{actors}}

{{goals}}

{{relationships}}

# Available actions
{{actions}}

# Action examples
{{actionExamples}}

# Instructions
You are {{agentName}}. Write the next message for {{agentName}} in the conversation below.
Pick exactly one action from: {{actionNames}}.
Respond with a JSON block formatted for markdown with this structure:
` + fence + `json
{ "user": "{{agentName}}", "content": "<message text>", "action": "<ACTION>" }
` + fence + `

# Conversation
{{recentMessages}}
`

// Introduce asks the model to pick a single pairing from the rolodex.
const Introduce = `TASK: Introduce {{senderName}} to someone from {{agentName}}'s rolodex.
Decide which person in the rolodex would be the best match for {{senderName}} to meet.

# EXAMPLE DATA (do not use in your answer)

## ROLODEX
- Jamie: Loves music, especially playing guitar hero
- Mike: Plays Starcraft 2 and likes to talk about it
- Lucius: Tweets about the latest tech news

# Actors in the scene
- Agent: A test agent evaluated on connecting users
- Kyle: Listens to heavy metal music and plays Guitar Hero

Example output:
` + fence + `json
{ "explanation": "Kyle and Jamie both love music and play Guitar Hero.", "userA": "Kyle", "userB": "Jamie" }
` + fence + `

# ACTUAL DATA

{{relevantRelationships}}

# Actors in the scene
{{actors}}

Decide whether {{agentName}} should connect one of the people in the scene with one person from the rolodex.
Choose the connection most likely to be successful and beneficial for both people.
Respond with exactly one connection. {{agentName}} is already connected to everyone, leave them out.

Respond with a JSON block formatted for markdown with this structure:
` + fence + `json
{ "explanation": "<why they should meet>", "userA": "<name>", "userB": "<name>" }
` + fence + `
`

// GoalEvaluation asks which objectives of the active goals the conversation
// has satisfied.
const GoalEvaluation = `TASK: Update goal progress for {{senderName}}.

{{goals}}

# Conversation
{{recentMessages}}

Read the conversation and decide which objectives have been completed.
Only mark an objective completed when the conversation clearly shows it.
Respond with a JSON block formatted for markdown with this structure:
` + fence + `json
{ "goals": [ { "id": "<goal id>", "completed": [<objective number>, ...] } ] }
` + fence + `
`

// ProfileEvaluation extracts a short third-person description of the sender.
const ProfileEvaluation = `TASK: Describe {{senderName}} for {{agentName}}'s rolodex.

# Conversation
{{recentMessages}}

Write one or two sentences describing {{senderName}}: interests, location, work, and what kind of people they want to meet.
Only use facts {{senderName}} stated. If there is nothing new, return an empty description.
Respond with a JSON block formatted for markdown with this structure:
` + fence + `json
{ "user": "{{senderName}}", "description": "<description or empty>" }
` + fence + `
`
