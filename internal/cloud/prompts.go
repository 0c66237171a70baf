// Copyright 2025 Darkroom Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud defines the application configuration and backend clients.
// This file holds the default prompt template sources. They are Go
// text/template documents; the services parse them once at construction and
// execute them per request. TOML configuration can replace any of them
// wholesale.
package cloud

// DefaultImageAnalysisPrompt asks the vision model for the physical print's
// bounding box plus the historical metadata block, as a single JSON object.
const DefaultImageAnalysisPrompt = `Analyze this image containing an old physical photograph.

BOUNDING BOX DETECTION:
Detect the complete rectangular boundaries of the physical photograph (all four edges: top, bottom, left, right).
- Include: photo paper edges, corners, white borders
- Exclude: cloth/fabric, table surfaces, shadows, background objects
- Capture the ENTIRE photo from edge to edge

ANALYSIS TASKS:
1. Bounding box coordinates (x, y, width, height) in pixels relative to {{.Width}}x{{.Height}}
2. Estimated year (single year or narrow range)
3. Clothing analysis: styles, materials, quality, significance
4. Socioeconomic inference from visual cues
5. Lifestyle insights
{{- if .Location}}
6. How location ({{.Location}}) relates to the photo
{{- end}}
{{- if .HistoricalContext}}

HISTORICAL CONTEXT (for reference):
{{.HistoricalContext}}

Use this historical context to inform your analysis of the photo, especially regarding the era, location, and cultural context.
{{- end}}
{{- if .Location}}
Location: {{.Location}}
{{- end}}
{{- if .UserContext}}
User context: {{.UserContext}}
{{- end}}

Respond with ONLY valid JSON shaped exactly like this example:
{{.ExampleJSON}}

Put the narrative in metadata.notes and keep URLs out of every field.
Coordinates: x=left edge, y=top edge, width=left-to-right distance, height=top-to-bottom distance.
`

// DefaultVideoAnalysisPrompt is the film-footage variant: metadata only,
// no bounding box.
const DefaultVideoAnalysisPrompt = `Analyze this historical video/film footage.

ANALYSIS TASKS:
1. Estimated year/era (single year or narrow range)
2. Historical context about the location and era
3. Clothing/styles visible in the video
4. Socioeconomic inference from visual cues
5. Lifestyle insights
6. Notable events, activities, or cultural elements
{{- if .Location}}
7. How location ({{.Location}}) relates to what we see
{{- end}}
{{- if .HistoricalContext}}

HISTORICAL CONTEXT (for reference):
{{.HistoricalContext}}
{{- end}}
{{- if .Location}}
Location: {{.Location}}
{{- end}}
{{- if .UserContext}}
User context: {{.UserContext}}
{{- end}}

Respond with ONLY valid JSON shaped exactly like this example:
{{.ExampleJSON}}
`

// DefaultRestorationPrompt instructs the image model to repair damage
// without inventing scene content. The background-preservation block exists
// because image models readily hallucinate furniture into blank studio
// backdrops.
const DefaultRestorationPrompt = `Restore and enhance this vintage photograph from {{.YearInfo}}{{if .PeriodInfo}} ({{.PeriodInfo}}){{end}}.

{{.ColorizeInstruction}}

RESTORATION:
- Remove scratches, dust, damage, fading, discoloration
- Enhance clarity, sharpness, and missing details
- Maintain historical authenticity

EXTENSION (CONSERVATIVE):
- Only extend elements already partially visible
- Continue visible patterns/textures/structures
{{- if .PeriodInfo}}
- Keep historically accurate for {{.PeriodInfo}}
{{- end}}

CRITICAL - PRESERVE BACKGROUNDS:
- Keep white/blank/empty backgrounds exactly as they appear
- Do NOT add new objects or scenes to empty areas
- Preserve original composition, poses, expressions
{{- if .Notes}}

Context: {{.Notes}}
{{- end}}

Output: Complete restored version with damage repaired. Extend only partially visible elements. Preserve white/blank backgrounds.
`

// DefaultAnimationPrompt drives Veo toward subject motion rather than the
// camera moves it defaults to.
const DefaultAnimationPrompt = `Bring this historical photograph from {{.YearInfo}}{{if .PeriodInfo}} ({{.PeriodInfo}}){{end}} to life as a short cinematic video.

ANIMATION REQUIREMENTS:
- Animate the PEOPLE and SUBJECTS in the scene - they should move naturally
- Subtle, realistic motion: gentle breathing, slight head movements, natural gestures
- People should appear alive and present, not frozen
- If there are multiple people, show natural interaction between them
- Animate any visible elements: clothing movement, hair swaying, natural body language

CAMERA:
- Very subtle camera movement only - the focus should be on the subjects moving
- Avoid excessive zooming or panning
- Keep the composition similar to the original photograph

STYLE:
- Cinematic, respectful, historically accurate
- Preserve the original mood and atmosphere
- Period-appropriate movement and behavior
- Natural lighting and shadows that move subtly
{{- if .Notes}}

Context: {{.Notes}}
{{- end}}

IMPORTANT: The people in the photograph must move and come to life. Do not just zoom or pan the camera - animate the subjects themselves.
`
