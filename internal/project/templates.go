package project

import "sort"

// templates seed new projects.
var templates = map[string][]FileInput{
	"blank": {
		{Path: "/index.html", Content: `<!doctype html>
<html>
  <head><meta charset="utf-8"><title>PlayCraft</title></head>
  <body><div id="root"></div><script type="module" src="/src/main.tsx"></script></body>
</html>
`},
		{Path: "/src/main.tsx", Content: `import { createRoot } from "react-dom/client";
import App from "./App";

createRoot(document.getElementById("root")!).render(<App />);
`},
		{Path: "/src/App.tsx", Content: `export default function App() {
  return <main>Hello, PlayCraft</main>;
}
`},
	},
	"match3": {
		{Path: "/index.html", Content: `<!doctype html>
<html>
  <head><meta charset="utf-8"><title>Match 3</title></head>
  <body><div id="root"></div><script type="module" src="/src/main.tsx"></script></body>
</html>
`},
		{Path: "/src/main.tsx", Content: `import { createRoot } from "react-dom/client";
import App from "./App";

createRoot(document.getElementById("root")!).render(<App />);
`},
		{Path: "/src/App.tsx", Content: `import { GameBoard } from "@/components/GameBoard";
import { ScoreBar } from "@/components/ScoreBar";

export default function App() {
  return (
    <main>
      <ScoreBar />
      <GameBoard rows={8} cols={8} />
    </main>
  );
}
`},
		{Path: "/src/components/GameBoard.tsx", Content: `import { useBoard } from "../hooks/useBoard";

export function GameBoard({ rows, cols }: { rows: number; cols: number }) {
  const { tiles, swap } = useBoard(rows, cols);
  return <div className="board">{tiles.length} tiles</div>;
}
`},
		{Path: "/src/components/ScoreBar.tsx", Content: `import { useScore } from "../hooks/useScore";

export function ScoreBar() {
  const score = useScore();
  return <header>Score: {score}</header>;
}
`},
		{Path: "/src/hooks/useBoard.ts", Content: `export function useBoard(rows: number, cols: number) {
  const tiles = Array.from({ length: rows * cols }, (_, i) => i % 5);
  const swap = (a: number, b: number) => [tiles[a], tiles[b]] = [tiles[b], tiles[a]];
  return { tiles, swap };
}
`},
		{Path: "/src/hooks/useScore.ts", Content: `export function useScore() {
  return 0;
}
`},
	},
}

// Template returns a copy of the named template's files.
func Template(name string) ([]FileInput, bool) {
	files, ok := templates[name]
	if !ok {
		return nil, false
	}
	out := make([]FileInput, len(files))
	copy(out, files)
	return out, true
}

// TemplateNames lists the available templates.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
